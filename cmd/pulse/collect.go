package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/cli"
	"github.com/openinsight-kr/market-pulse/internal/common"
	"github.com/openinsight-kr/market-pulse/internal/engine"
	"github.com/openinsight-kr/market-pulse/internal/metrics"
	"github.com/openinsight-kr/market-pulse/internal/publicdata"
	"github.com/openinsight-kr/market-pulse/internal/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run the snapshot collection once",
		Long: `Fetch the store-count and floating-population signals for every
(region, category) pair, compute market metrics, and replace today's
snapshot rows with the new batch.`,
		RunE: runCollect,
	}

	// Flags
	cmd.Flags().String("mode", "", "scheduling mode (sequential, parallel)")
	cmd.Flags().Int("workers", 0, "simultaneous upstream calls in parallel mode")
	cmd.Flags().String("strategy", "", "grading strategy (density, sales)")

	// Bind to viper
	_ = viper.BindPFlag("collector.mode", cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("collector.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("grading.strategy", cmd.Flags().Lookup("strategy"))

	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	slog.Info(cli.FormatTitle("Collecting market snapshot..."))

	upstreamCfg := publicdata.Config{
		RegistryKey:   viper.GetString("registry.api_key"),
		RegistryURL:   viper.GetString("registry.base_url"),
		PopulationKey: viper.GetString("population.api_key"),
		PopulationURL: viper.GetString("population.base_url"),
	}

	// Missing upstream configuration is deliberately not fatal: every
	// call then fails through the degradation path and the run produces
	// simulated data, which is still useful against an unseeded
	// environment.
	if err := upstreamCfg.Validate(); err != nil {
		slog.Warn(cli.FormatWarning("upstream configuration incomplete, expect simulated data"),
			"error", err)
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	calculator, err := metrics.New(viper.GetString("grading.strategy"), gradingThresholds(), nil)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Mode:           engine.Mode(viper.GetString("collector.mode")),
		Workers:        viper.GetInt("collector.workers"),
		PairDelay:      time.Duration(viper.GetInt("collector.delay_ms")) * time.Millisecond,
		ProgressWriter: os.Stderr,
	}

	collector := engine.NewWithOptions(store, publicdata.NewClient(upstreamCfg), calculator, opts)

	summary, err := collector.Run(ctx)
	if err != nil {
		return common.NewUserError("collection failed", err)
	}

	fmt.Println(summary.GetDisplay())
	return nil
}

func gradingThresholds() metrics.Thresholds {
	thresholds := metrics.DefaultThresholds()
	if viper.IsSet("grading.green_threshold") {
		thresholds.Green = viper.GetFloat64("grading.green_threshold")
	}
	if viper.IsSet("grading.red_threshold") {
		thresholds.Red = viper.GetFloat64("grading.red_threshold")
	}
	if viper.IsSet("grading.opportunity_threshold") {
		thresholds.Opportunity = viper.GetFloat64("grading.opportunity_threshold")
	}
	if viper.IsSet("grading.overcrowded_threshold") {
		thresholds.Overcrowded = viper.GetFloat64("grading.overcrowded_threshold")
	}
	return thresholds
}

func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = fmt.Sprintf("%s/.local/share/pulse/pulse.db", home)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}
