package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/common"
	"github.com/openinsight-kr/market-pulse/internal/model"
	"github.com/openinsight-kr/market-pulse/internal/storage"
	"github.com/openinsight-kr/market-pulse/internal/testutil"
)

var testDay = time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

func testSnapshot(regionID, categoryID int64) model.MarketSnapshot {
	return model.MarketSnapshot{
		RegionID:           regionID,
		CategoryID:         categoryID,
		Grade:              model.GradeGreen,
		StoreCount:         42,
		FloatingPopulation: 12000,
		AverageSales:       47542857,
		PopulationPerStore: 285.71,
		GrowthRate:         2.5,
		ClosingRate:        2.0,
		NetGrowthRate:      0.5,
		CreatedAt:          testDay,
		UpdatedAt:          testDay,
	}
}

func TestGetBaseInfoMissingReference(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	_, _, err = store.GetBaseInfo(ctx)
	if !errors.Is(err, common.ErrReferenceDataMissing) {
		t.Errorf("expected ErrReferenceDataMissing, got %v", err)
	}
}

func TestGetBaseInfo(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)

	gotRegions, gotCategories, err := db.Storage.GetBaseInfo(context.Background())
	if err != nil {
		t.Fatalf("GetBaseInfo failed: %v", err)
	}

	if len(gotRegions) != 1 || gotRegions[0].AdmCode != "11680" {
		t.Errorf("unexpected regions: %+v", gotRegions)
	}
	if gotRegions[0].ID == 0 {
		t.Error("region ID should be assigned by the store")
	}
	if len(gotCategories) != 1 || gotCategories[0].Name != "카페" {
		t.Errorf("unexpected categories: %+v", gotCategories)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("migration run %d failed: %v", i+1, err)
		}
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != storage.ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, storage.ExpectedSchemaVersion)
	}
}

func TestSaveRegionsIdempotent(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)

	inserted, err := db.Storage.SaveRegions(context.Background(), regions)
	if err != nil {
		t.Fatalf("SaveRegions failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("re-seeding inserted %d rows, want 0", inserted)
	}
}

func TestSaveRegionsRejectsEmptyCode(t *testing.T) {
	db := testutil.SetupTestDB(t, nil, nil)

	_, err := db.Storage.SaveRegions(context.Background(), []model.Region{
		{AdmCode: "  ", Province: "서울특별시", District: "강남구"},
	})
	if !errors.Is(err, storage.ErrEmptyString) {
		t.Errorf("expected ErrEmptyString, got %v", err)
	}
}

func TestSaveCategoriesIdempotent(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)

	inserted, err := db.Storage.SaveCategories(context.Background(), categories)
	if err != nil {
		t.Fatalf("SaveCategories failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("re-seeding inserted %d rows, want 0", inserted)
	}
}

func TestInsertAndGetSnapshotsByDate(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	snap := testSnapshot(db.Regions[0].ID, db.Categories[0].ID)
	if err := db.Storage.InsertSnapshots(ctx, []model.MarketSnapshot{snap}); err != nil {
		t.Fatalf("InsertSnapshots failed: %v", err)
	}

	got, err := db.Storage.GetSnapshotsByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(got))
	}

	row := got[0]
	if row.Grade != model.GradeGreen {
		t.Errorf("grade = %q, want %q", row.Grade, model.GradeGreen)
	}
	if row.StoreCount != 42 || row.FloatingPopulation != 12000 {
		t.Errorf("unexpected counts: store=%d population=%d", row.StoreCount, row.FloatingPopulation)
	}
	if row.AverageSales != 47542857 {
		t.Errorf("average_sales = %d, want 47542857", row.AverageSales)
	}
	if row.NetGrowthRate != 0.5 {
		t.Errorf("net_growth_rate = %v, want 0.5", row.NetGrowthRate)
	}
	if row.IsSimulated {
		t.Error("is_simulated should round-trip as false")
	}

	// A different day sees nothing.
	other, err := db.Storage.GetSnapshotsByDate(ctx, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("got %d snapshots on the wrong day, want 0", len(other))
	}
}

func TestInsertSnapshotsEmptyBatch(t *testing.T) {
	db := testutil.SetupTestDB(t, nil, nil)

	if err := db.Storage.InsertSnapshots(context.Background(), nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestInsertSnapshotsValidation(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.MarketSnapshot)
	}{
		{"missing region", func(s *model.MarketSnapshot) { s.RegionID = 0 }},
		{"negative store count", func(s *model.MarketSnapshot) { s.StoreCount = -1 }},
		{"negative population", func(s *model.MarketSnapshot) { s.FloatingPopulation = -1 }},
		{"unknown grade", func(s *model.MarketSnapshot) { s.Grade = "PURPLE" }},
		{"zero created_at", func(s *model.MarketSnapshot) { s.CreatedAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot(db.Regions[0].ID, db.Categories[0].ID)
			tt.mutate(&snap)

			err := db.Storage.InsertSnapshots(ctx, []model.MarketSnapshot{snap})
			if !errors.Is(err, storage.ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestGetExistingKeys(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	keys, err := db.Storage.GetExistingKeys(ctx, testDay)
	if err != nil {
		t.Fatalf("GetExistingKeys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("fresh database has %d keys, want 0", len(keys))
	}

	snap := testSnapshot(db.Regions[0].ID, db.Categories[0].ID)
	if err := db.Storage.InsertSnapshots(ctx, []model.MarketSnapshot{snap}); err != nil {
		t.Fatalf("InsertSnapshots failed: %v", err)
	}

	keys, err = db.Storage.GetExistingKeys(ctx, testDay)
	if err != nil {
		t.Fatalf("GetExistingKeys failed: %v", err)
	}
	want := model.SnapshotKey{RegionID: db.Regions[0].ID, CategoryID: db.Categories[0].ID}
	if _, ok := keys[want]; !ok || len(keys) != 1 {
		t.Errorf("keys = %v, want exactly %v", keys, want)
	}

	keys, err = db.Storage.GetExistingKeys(ctx, testDay.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("GetExistingKeys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("previous day has %d keys, want 0", len(keys))
	}
}

func TestDeleteSnapshots(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	key := model.SnapshotKey{RegionID: db.Regions[0].ID, CategoryID: db.Categories[0].ID}
	snap := testSnapshot(key.RegionID, key.CategoryID)

	// Same key on the previous day must survive a today-scoped delete.
	yesterday := snap
	yesterday.CreatedAt = testDay.AddDate(0, 0, -1)
	yesterday.UpdatedAt = yesterday.CreatedAt

	if err := db.Storage.InsertSnapshots(ctx, []model.MarketSnapshot{snap, yesterday}); err != nil {
		t.Fatalf("InsertSnapshots failed: %v", err)
	}

	if err := db.Storage.DeleteSnapshots(ctx, []model.SnapshotKey{key}, testDay); err != nil {
		t.Fatalf("DeleteSnapshots failed: %v", err)
	}

	today, err := db.Storage.GetSnapshotsByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(today) != 0 {
		t.Errorf("today still has %d rows after delete, want 0", len(today))
	}

	prev, err := db.Storage.GetSnapshotsByDate(ctx, yesterday.CreatedAt)
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(prev) != 1 {
		t.Errorf("yesterday has %d rows, want 1 untouched", len(prev))
	}
}

func TestDeleteSnapshotsEmptyKeys(t *testing.T) {
	db := testutil.SetupTestDB(t, nil, nil)

	if err := db.Storage.DeleteSnapshots(context.Background(), nil, testDay); err != nil {
		t.Errorf("empty key set should be a no-op, got %v", err)
	}
}

func TestReplaceSnapshotsRerunSameDay(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	key := model.SnapshotKey{RegionID: db.Regions[0].ID, CategoryID: db.Categories[0].ID}

	// First run of the day: nothing to delete.
	first := testSnapshot(key.RegionID, key.CategoryID)
	if err := db.Storage.ReplaceSnapshots(ctx, nil, []model.MarketSnapshot{first}, testDay); err != nil {
		t.Fatalf("first ReplaceSnapshots failed: %v", err)
	}

	// Rerun with fresher numbers replaces, never duplicates.
	second := testSnapshot(key.RegionID, key.CategoryID)
	second.StoreCount = 45
	if err := db.Storage.ReplaceSnapshots(ctx, []model.SnapshotKey{key}, []model.MarketSnapshot{second}, testDay); err != nil {
		t.Fatalf("second ReplaceSnapshots failed: %v", err)
	}

	got, err := db.Storage.GetSnapshotsByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows after rerun, want exactly 1", len(got))
	}
	if got[0].StoreCount != 45 {
		t.Errorf("store_count = %d, want the rerun value 45", got[0].StoreCount)
	}
}

func TestReplaceSnapshotsAtomicOnBadRow(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	key := model.SnapshotKey{RegionID: db.Regions[0].ID, CategoryID: db.Categories[0].ID}
	original := testSnapshot(key.RegionID, key.CategoryID)
	if err := db.Storage.InsertSnapshots(ctx, []model.MarketSnapshot{original}); err != nil {
		t.Fatalf("InsertSnapshots failed: %v", err)
	}

	bad := testSnapshot(key.RegionID, key.CategoryID)
	bad.Grade = "PURPLE"
	err := db.Storage.ReplaceSnapshots(ctx, []model.SnapshotKey{key}, []model.MarketSnapshot{bad}, testDay)
	if err == nil {
		t.Fatal("expected ReplaceSnapshots to reject the invalid row")
	}

	got, err := db.Storage.GetSnapshotsByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(got) != 1 || got[0].StoreCount != 42 {
		t.Errorf("original row should survive a failed replace, got %+v", got)
	}
}

func TestTransactionDeleteInsert(t *testing.T) {
	regions, categories := testutil.SeoulTestReference()
	db := testutil.SetupTestDB(t, regions, categories)
	ctx := context.Background()

	key := model.SnapshotKey{RegionID: db.Regions[0].ID, CategoryID: db.Categories[0].ID}
	if err := db.Storage.InsertSnapshots(ctx, []model.MarketSnapshot{testSnapshot(key.RegionID, key.CategoryID)}); err != nil {
		t.Fatalf("InsertSnapshots failed: %v", err)
	}

	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}

	replacement := testSnapshot(key.RegionID, key.CategoryID)
	replacement.StoreCount = 99
	if err := tx.DeleteSnapshots(ctx, []model.SnapshotKey{key}, testDay); err != nil {
		t.Fatalf("tx delete failed: %v", err)
	}
	if err := tx.InsertSnapshots(ctx, []model.MarketSnapshot{replacement}); err != nil {
		t.Fatalf("tx insert failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	got, err := db.Storage.GetSnapshotsByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("GetSnapshotsByDate failed: %v", err)
	}
	if len(got) != 1 || got[0].StoreCount != 99 {
		t.Errorf("transaction result = %+v, want single row with store_count 99", got)
	}
}
