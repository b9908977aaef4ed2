package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/openinsight-kr/market-pulse/internal/cli"
	"github.com/openinsight-kr/market-pulse/internal/refdata"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the reference tables",
		Long: `Load the regions and categories reference tables.

Regions come from an administrative-district GeoJSON (filtered to Seoul);
categories come from a registry category-code CSV, or fall back to the
built-in category set when no CSV is given. Seeding is idempotent: rows
already present are left untouched.`,
		RunE: runSeed,
	}

	cmd.Flags().String("regions", "", "path to the administrative-district GeoJSON")
	cmd.Flags().String("categories", "", "path to the category-code CSV (optional)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	regionsPath, _ := cmd.Flags().GetString("regions")
	categoriesPath, _ := cmd.Flags().GetString("categories")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if regionsPath != "" {
		f, err := os.Open(regionsPath)
		if err != nil {
			return fmt.Errorf("failed to open regions file: %w", err)
		}
		regions, err := refdata.ParseRegions(f)
		_ = f.Close()
		if err != nil {
			return err
		}

		inserted, err := store.SaveRegions(ctx, regions)
		if err != nil {
			return fmt.Errorf("failed to seed regions: %w", err)
		}
		slog.Info(cli.FormatSuccess("regions seeded"), "inserted", inserted, "parsed", len(regions))
	}

	categories := refdata.DefaultCategories()
	if categoriesPath != "" {
		f, err := os.Open(categoriesPath)
		if err != nil {
			return fmt.Errorf("failed to open categories file: %w", err)
		}
		categories, err = refdata.LoadCategoryCodes(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	inserted, err := store.SaveCategories(ctx, categories)
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	slog.Info(cli.FormatSuccess("categories seeded"), "inserted", inserted, "total", len(categories))

	return nil
}
