// Package engine drives the collection run: the cross product of regions
// and categories, bounded upstream fetches, metric computation, and the
// final replace-write of the day's snapshot batch.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/model"
	"github.com/openinsight-kr/market-pulse/internal/service"

	"github.com/schollz/progressbar/v3"
)

// Mode selects the scheduling model for the pair loop.
type Mode string

// Scheduling modes.
const (
	// ModeSequential processes one pair at a time with a small delay
	// between upstream calls to respect the portal's rate limits.
	ModeSequential Mode = "sequential"
	// ModeParallel schedules pairs onto a fixed worker pool.
	ModeParallel Mode = "parallel"
)

// Options configures a collection run.
type Options struct {
	ProgressWriter io.Writer // nil disables the progress bar
	Mode           Mode
	Workers        int           // simultaneous upstream calls in parallel mode
	PairDelay      time.Duration // delay between calls in sequential mode
}

// DefaultOptions returns the standard run configuration.
func DefaultOptions() Options {
	return Options{
		Mode:      ModeParallel,
		Workers:   5,
		PairDelay: 75 * time.Millisecond,
	}
}

// Summary shows the results of a collection run.
type Summary struct {
	Started   time.Time
	Duration  time.Duration
	Pairs     int
	Deleted   int
	Inserted  int
	Simulated int
}

// Collector orchestrates one collection run.
type Collector struct {
	storage    service.Storage
	fetcher    service.SignalFetcher
	calculator service.Calculator
	logger     *slog.Logger
	opts       Options
}

// New creates a collector with default options.
func New(storage service.Storage, fetcher service.SignalFetcher, calculator service.Calculator) *Collector {
	return NewWithOptions(storage, fetcher, calculator, DefaultOptions())
}

// NewWithOptions creates a collector with custom options.
func NewWithOptions(storage service.Storage, fetcher service.SignalFetcher, calculator service.Calculator, opts Options) *Collector {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.PairDelay <= 0 {
		opts.PairDelay = 75 * time.Millisecond
	}
	if opts.Mode == "" {
		opts.Mode = ModeParallel
	}

	return &Collector{
		storage:    storage,
		fetcher:    fetcher,
		calculator: calculator,
		opts:       opts,
		logger:     slog.Default().With("component", "collector"),
	}
}

// pair is one (region, category) unit of work.
type pair struct {
	region   model.Region
	category model.Category
}

// Run executes a full collection: reference data, population snapshot,
// existing keys, the pair loop, and the replace-write. Upstream failures
// inside a single pair degrade to simulated values; failures around the
// reference read or the write phase abort the run.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	c.logger.Info("starting market data collection")

	regions, categories, err := c.storage.GetBaseInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	// One bulk fetch per run, shared read-only across all workers.
	popMap := c.fetcher.FetchPopulationSnapshot(ctx)
	if len(popMap) == 0 {
		c.logger.Warn("population snapshot is empty, all pairs will use population 0")
	}

	existing, err := c.storage.GetExistingKeys(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing keys: %w", err)
	}

	pairs := make([]pair, 0, len(regions)*len(categories))
	for _, region := range regions {
		for _, category := range categories {
			pairs = append(pairs, pair{region: region, category: category})
		}
	}
	c.logger.Info("collection scheduled",
		"regions", len(regions),
		"categories", len(categories),
		"pairs", len(pairs),
		"mode", string(c.opts.Mode))

	bar := c.newProgressBar(len(pairs))

	var rows []model.MarketSnapshot
	if c.opts.Mode == ModeSequential {
		rows, err = c.collectSequential(ctx, pairs, popMap, start, bar)
	} else {
		rows, err = c.collectParallel(ctx, pairs, popMap, start, bar)
	}
	if err != nil {
		return nil, err
	}

	// Deletions must all land before any insert so two rows for the same
	// key never coexist on a date; ReplaceSnapshots guarantees both the
	// ordering and the atomicity.
	var deleteKeys []model.SnapshotKey
	for i := range rows {
		if _, ok := existing[rows[i].Key()]; ok {
			deleteKeys = append(deleteKeys, rows[i].Key())
		}
	}

	if err := c.storage.ReplaceSnapshots(ctx, deleteKeys, rows, start); err != nil {
		return nil, fmt.Errorf("failed to write snapshot batch: %w", err)
	}

	simulated := 0
	for i := range rows {
		if rows[i].IsSimulated {
			simulated++
		}
	}

	summary := &Summary{
		Started:   start,
		Duration:  time.Since(start),
		Pairs:     len(pairs),
		Deleted:   len(deleteKeys),
		Inserted:  len(rows),
		Simulated: simulated,
	}
	c.logger.Info("collection complete",
		"pairs", summary.Pairs,
		"deleted", summary.Deleted,
		"inserted", summary.Inserted,
		"simulated", summary.Simulated,
		"duration", summary.Duration)

	return summary, nil
}

// collectSequential processes pairs one at a time with a fixed delay
// between upstream calls.
func (c *Collector) collectSequential(ctx context.Context, pairs []pair, popMap map[string]model.PopulationRecord, start time.Time, bar *progressbar.ProgressBar) ([]model.MarketSnapshot, error) {
	rows := make([]model.MarketSnapshot, 0, len(pairs))

	for i, p := range pairs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.PairDelay):
			}
		}

		rows = append(rows, c.processPair(ctx, p, popMap, start))
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return rows, nil
}

// collectParallel schedules pairs onto a fixed worker pool. No ordering is
// required between pairs, so results are collected as they complete.
func (c *Collector) collectParallel(ctx context.Context, pairs []pair, popMap map[string]model.PopulationRecord, start time.Time, bar *progressbar.ProgressBar) ([]model.MarketSnapshot, error) {
	workChan := make(chan pair, len(pairs))
	for _, p := range pairs {
		workChan <- p
	}
	close(workChan)

	resultsChan := make(chan model.MarketSnapshot, len(pairs))

	var wg sync.WaitGroup
	wg.Add(c.opts.Workers)
	for i := 0; i < c.opts.Workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for p := range workChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				resultsChan <- c.processPair(ctx, p, popMap, start)
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	rows := make([]model.MarketSnapshot, 0, len(pairs))
	for row := range resultsChan {
		rows = append(rows, row)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// processPair fetches the signals for one pair and assembles the snapshot
// row. This path never fails: a dead upstream produces a zero store count,
// which the calculator backfills with a simulated value. Every row carries
// the run's start timestamp so the batch always lands on the same calendar
// date the dedup phase was scoped to, even when a run crosses midnight.
func (c *Collector) processPair(ctx context.Context, p pair, popMap map[string]model.PopulationRecord, start time.Time) model.MarketSnapshot {
	storeCount := c.fetcher.FetchStoreCount(ctx, p.region.AdmCode, p.category.ExternalCode)
	population := popMap[p.region.AdmCode].Total

	record := c.calculator.Calculate(storeCount, population, p.category.Name)

	return model.MarketSnapshot{
		RegionID:           p.region.ID,
		CategoryID:         p.category.ID,
		StoreCount:         record.StoreCount,
		FloatingPopulation: record.FloatingPopulation,
		PopulationPerStore: record.PopulationPerStore,
		AverageSales:       record.AverageSales,
		GrowthRate:         record.GrowthRate,
		ClosingRate:        record.ClosingRate,
		NetGrowthRate:      record.NetGrowthRate,
		Grade:              record.Grade,
		IsSimulated:        record.IsSimulated,
		CreatedAt:          start,
		UpdatedAt:          start,
	}
}

func (c *Collector) newProgressBar(total int) *progressbar.ProgressBar {
	if c.opts.ProgressWriter == nil {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.opts.ProgressWriter),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Collecting market data...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
