package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openinsight-kr/market-pulse/internal/model"
)

// SaveRegions seeds the regions table. Regions already present (by
// administrative code) are left untouched. Returns how many rows were
// actually inserted.
func (s *SQLiteStorage) SaveRegions(ctx context.Context, regions []model.Region) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(regions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO regions (adm_code, province, district, town)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare region insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, region := range regions {
		if err := validateString(region.AdmCode, "adm_code"); err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, region.AdmCode, region.Province, region.District, region.Town)
		if err != nil {
			return 0, fmt.Errorf("failed to insert region %s: %w", region.AdmCode, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit regions: %w", err)
	}

	slog.Info("seeded regions", "inserted", inserted, "total", len(regions))
	return inserted, nil
}

// SaveCategories seeds the categories table, ignoring names already
// present. Returns how many rows were actually inserted.
func (s *SQLiteStorage) SaveCategories(ctx context.Context, categories []model.Category) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(categories) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO categories (name, external_code)
		VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare category insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, category := range categories {
		if err := validateString(category.Name, "name"); err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, category.Name, category.ExternalCode)
		if err != nil {
			return 0, fmt.Errorf("failed to insert category %s: %w", category.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit categories: %w", err)
	}

	slog.Info("seeded categories", "inserted", inserted, "total", len(categories))
	return inserted, nil
}
