// Package testutil provides test utilities for the market-pulse project.
package testutil

import (
	"context"
	"testing"

	"github.com/openinsight-kr/market-pulse/internal/model"
	"github.com/openinsight-kr/market-pulse/internal/storage"
)

// TestDB wraps an in-memory test database.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	Regions    []model.Region
	Categories []model.Category
	t          *testing.T
}

// SetupTestDB creates a new in-memory test database, runs migrations, and
// seeds the given reference data. Cleanup is automatic.
func SetupTestDB(t *testing.T, regions []model.Region, categories []model.Category) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(regions) > 0 {
		if _, err := store.SaveRegions(ctx, regions); err != nil {
			t.Fatalf("failed to seed regions: %v", err)
		}
	}
	if len(categories) > 0 {
		if _, err := store.SaveCategories(ctx, categories); err != nil {
			t.Fatalf("failed to seed categories: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	// Re-read so callers get the store-assigned IDs.
	var seededRegions []model.Region
	var seededCategories []model.Category
	if len(regions) > 0 && len(categories) > 0 {
		seededRegions, seededCategories, err = store.GetBaseInfo(ctx)
		if err != nil {
			t.Fatalf("failed to read back reference data: %v", err)
		}
	}

	return &TestDB{
		Storage:    store,
		Regions:    seededRegions,
		Categories: seededCategories,
		t:          t,
	}
}

// SeoulTestReference returns a minimal Gangnam-gu reference set.
func SeoulTestReference() ([]model.Region, []model.Category) {
	regions := []model.Region{
		{AdmCode: "11680", Province: "서울특별시", District: "강남구", Town: "역삼동"},
	}
	categories := []model.Category{
		{Name: "카페", ExternalCode: "I21201"},
	}
	return regions, categories
}
