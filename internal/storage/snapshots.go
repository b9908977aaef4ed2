package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/common"
	"github.com/openinsight-kr/market-pulse/internal/model"
)

const (
	dateFormat = "2006-01-02"

	// timestampFormat keeps stored timestamps in a shape SQLite's date()
	// function can always parse.
	timestampFormat = "2006-01-02 15:04:05"
)

// GetBaseInfo returns the seeded regions and categories. It fails when
// either table is empty, which signals that reference data was never
// seeded and the run must not proceed.
func (s *SQLiteStorage) GetBaseInfo(ctx context.Context) ([]model.Region, []model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	regions, err := s.getRegions(ctx)
	if err != nil {
		return nil, nil, err
	}

	categories, err := s.getCategories(ctx)
	if err != nil {
		return nil, nil, err
	}

	if len(regions) == 0 || len(categories) == 0 {
		return nil, nil, fmt.Errorf("%w: %d regions, %d categories",
			common.ErrReferenceDataMissing, len(regions), len(categories))
	}

	return regions, categories, nil
}

func (s *SQLiteStorage) getRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, adm_code, province, district, COALESCE(town, '')
		FROM regions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var regions []model.Region
	for rows.Next() {
		var r model.Region
		if err := rows.Scan(&r.ID, &r.AdmCode, &r.Province, &r.District, &r.Town); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, r)
	}

	return regions, rows.Err()
}

func (s *SQLiteStorage) getCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(external_code, '')
		FROM categories
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ExternalCode); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// GetExistingKeys returns the (region, category) keys that already have a
// snapshot row on the given calendar date.
func (s *SQLiteStorage) GetExistingKeys(ctx context.Context, date time.Time) (map[model.SnapshotKey]struct{}, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT region_id, category_id
		FROM market_stats
		WHERE date(created_at) = ?`, date.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[model.SnapshotKey]struct{})
	for rows.Next() {
		var key model.SnapshotKey
		if err := rows.Scan(&key.RegionID, &key.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys[key] = struct{}{}
	}

	return keys, rows.Err()
}

// DeleteSnapshots removes the rows matching each key on the given date.
// The whole batch runs in one transaction: a failure rolls back every
// deletion. An empty key set performs no database call.
func (s *SQLiteStorage) DeleteSnapshots(ctx context.Context, keys []model.SnapshotKey, date time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(keys) == 0 {
		slog.Debug("no superseded snapshots to delete")
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteSnapshotsTx(ctx, tx, keys, date); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) deleteSnapshotsTx(ctx context.Context, tx *sql.Tx, keys []model.SnapshotKey, date time.Time) error {
	stmt, err := tx.PrepareContext(ctx, `
		DELETE FROM market_stats
		WHERE region_id = ? AND category_id = ? AND date(created_at) = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	day := date.Format(dateFormat)
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key.RegionID, key.CategoryID, day); err != nil {
			return fmt.Errorf("failed to delete snapshot for region %d category %d: %w",
				key.RegionID, key.CategoryID, err)
		}
	}

	slog.Info("deleted superseded snapshots", "count", len(keys), "date", day)
	return nil
}

// InsertSnapshots bulk-appends the rows. The store enforces no per-row
// uniqueness; correctness depends on DeleteSnapshots having run first for
// any key being re-inserted. An empty batch is a logged no-op.
func (s *SQLiteStorage) InsertSnapshots(ctx context.Context, rows []model.MarketSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(rows) == 0 {
		slog.Info("no snapshots to insert")
		return nil
	}
	if err := validateSnapshots(rows); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertSnapshotsTx(ctx, tx, rows); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) insertSnapshotsTx(ctx context.Context, tx *sql.Tx, rows []model.MarketSnapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_stats (
			region_id, category_id, store_count, floating_population,
			population_per_store, average_sales, growth_rate, closing_rate,
			net_growth_rate, market_grade, is_simulated, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		row := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			row.RegionID,
			row.CategoryID,
			row.StoreCount,
			row.FloatingPopulation,
			row.PopulationPerStore,
			row.AverageSales,
			row.GrowthRate,
			row.ClosingRate,
			row.NetGrowthRate,
			string(row.Grade),
			row.IsSimulated,
			row.CreatedAt.Format(timestampFormat),
			row.UpdatedAt.Format(timestampFormat),
		); err != nil {
			return fmt.Errorf("failed to insert snapshot for region %d category %d: %w",
				row.RegionID, row.CategoryID, err)
		}
	}

	slog.Info("inserted snapshots", "count", len(rows))
	return nil
}

// ReplaceSnapshots deletes the superseded keys and inserts the new batch
// in a single transaction, so a failure between the two phases cannot
// leave the day's data half-written.
func (s *SQLiteStorage) ReplaceSnapshots(ctx context.Context, keys []model.SnapshotKey, rows []model.MarketSnapshot, date time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(keys) == 0 && len(rows) == 0 {
		slog.Info("nothing to replace")
		return nil
	}
	if err := validateSnapshots(rows); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(keys) > 0 {
		if err := s.deleteSnapshotsTx(ctx, tx, keys, date); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		if err := s.insertSnapshotsTx(ctx, tx, rows); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSnapshotsByDate returns all snapshot rows created on the given
// calendar date.
func (s *SQLiteStorage) GetSnapshotsByDate(ctx context.Context, date time.Time) ([]model.MarketSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region_id, category_id, store_count, floating_population,
		       population_per_store, average_sales, growth_rate, closing_rate,
		       net_growth_rate, market_grade, is_simulated, created_at, updated_at
		FROM market_stats
		WHERE date(created_at) = ?
		ORDER BY region_id, category_id`, date.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []model.MarketSnapshot
	for rows.Next() {
		var snap model.MarketSnapshot
		var grade string
		if err := rows.Scan(
			&snap.ID,
			&snap.RegionID,
			&snap.CategoryID,
			&snap.StoreCount,
			&snap.FloatingPopulation,
			&snap.PopulationPerStore,
			&snap.AverageSales,
			&snap.GrowthRate,
			&snap.ClosingRate,
			&snap.NetGrowthRate,
			&grade,
			&snap.IsSimulated,
			&snap.CreatedAt,
			&snap.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Grade = model.MarketGrade(grade)
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}
