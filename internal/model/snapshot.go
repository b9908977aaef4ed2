package model

import "time"

// MarketGrade is the categorical health label for a (region, category) pair.
type MarketGrade string

// Market grade constants.
const (
	GradeGreen  MarketGrade = "GREEN"
	GradeYellow MarketGrade = "YELLOW"
	GradeRed    MarketGrade = "RED"
)

// Valid reports whether the grade is one of the known labels.
func (g MarketGrade) Valid() bool {
	switch g {
	case GradeGreen, GradeYellow, GradeRed:
		return true
	}
	return false
}

// SnapshotKey identifies a snapshot row within a calendar date.
type SnapshotKey struct {
	RegionID   int64
	CategoryID int64
}

// MetricsRecord is the output of a metrics calculation for one pair.
// It carries no identity; the orchestrator attaches the key and timestamps.
type MetricsRecord struct {
	Grade              MarketGrade
	StoreCount         int
	FloatingPopulation int
	AverageSales       int64 // KRW
	PopulationPerStore float64
	GrowthRate         float64 // percent
	ClosingRate        float64 // percent
	NetGrowthRate      float64 // percent, growth - closing rounded to 2 places
	IsSimulated        bool
}

// MarketSnapshot is one persisted market_stats row. At most one row exists
// per (RegionID, CategoryID) and calendar date of CreatedAt after a run.
type MarketSnapshot struct {
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Grade              MarketGrade
	ID                 int64
	RegionID           int64
	CategoryID         int64
	StoreCount         int
	FloatingPopulation int
	AverageSales       int64
	PopulationPerStore float64
	GrowthRate         float64
	ClosingRate        float64
	NetGrowthRate      float64
	IsSimulated        bool
}

// Key returns the dedup key for this snapshot.
func (s *MarketSnapshot) Key() SnapshotKey {
	return SnapshotKey{RegionID: s.RegionID, CategoryID: s.CategoryID}
}
