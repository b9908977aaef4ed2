// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/model"
)

// Storage defines the contract for the snapshot persistence layer.
type Storage interface {
	// Reference data (read-only to the pipeline)
	GetBaseInfo(ctx context.Context) ([]model.Region, []model.Category, error)

	// Snapshot operations
	GetExistingKeys(ctx context.Context, date time.Time) (map[model.SnapshotKey]struct{}, error)
	DeleteSnapshots(ctx context.Context, keys []model.SnapshotKey, date time.Time) error
	InsertSnapshots(ctx context.Context, rows []model.MarketSnapshot) error
	ReplaceSnapshots(ctx context.Context, keys []model.SnapshotKey, rows []model.MarketSnapshot, date time.Time) error
	GetSnapshotsByDate(ctx context.Context, date time.Time) ([]model.MarketSnapshot, error)

	// Reference seeding
	SaveRegions(ctx context.Context, regions []model.Region) (int, error)
	SaveCategories(ctx context.Context, categories []model.Category) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction over the snapshot tables.
type Transaction interface {
	Commit() error
	Rollback() error

	DeleteSnapshots(ctx context.Context, keys []model.SnapshotKey, date time.Time) error
	InsertSnapshots(ctx context.Context, rows []model.MarketSnapshot) error
}

// SignalFetcher obtains the upstream signals for a pair. Implementations
// never return errors: any upstream failure degrades to the neutral default
// (0 stores, empty population map) and is logged instead.
type SignalFetcher interface {
	FetchStoreCount(ctx context.Context, admCode, categoryCode string) int
	FetchPopulationSnapshot(ctx context.Context) map[string]model.PopulationRecord
}

// Calculator maps the raw signals for a pair to a metrics record.
type Calculator interface {
	Calculate(storeCount, floatingPopulation int, categoryName string) model.MetricsRecord
}

// RetryOptions configures retry behavior for upstream operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
