// Package storage provides the data persistence layer for the market
// snapshot pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openinsight-kr/market-pulse/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSnapshots validates a slice of snapshot rows. Negative counts
// are precondition violations rejected here at the boundary, not inside
// the calculator.
func validateSnapshots(rows []model.MarketSnapshot) error {
	for i := range rows {
		if err := validateSnapshot(&rows[i]); err != nil {
			return fmt.Errorf("snapshot at index %d: %w", i, err)
		}
	}
	return nil
}

func validateSnapshot(row *model.MarketSnapshot) error {
	if row.RegionID <= 0 {
		return fmt.Errorf("%w: region_id must be positive", ErrInvalidSnapshot)
	}
	if row.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id must be positive", ErrInvalidSnapshot)
	}
	if row.StoreCount < 0 {
		return fmt.Errorf("%w: store_count cannot be negative", ErrInvalidSnapshot)
	}
	if row.FloatingPopulation < 0 {
		return fmt.Errorf("%w: floating_population cannot be negative", ErrInvalidSnapshot)
	}
	if !row.Grade.Valid() {
		return fmt.Errorf("%w: unknown market grade %q", ErrInvalidSnapshot, row.Grade)
	}
	if row.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at must be set", ErrInvalidSnapshot)
	}
	return nil
}
