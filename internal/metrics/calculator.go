// Package metrics derives market health metrics from the raw upstream
// signals. Calculators are pure compute: no I/O, and all randomness comes
// from an injected source so callers can make runs reproducible.
package metrics

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/openinsight-kr/market-pulse/internal/common"
	"github.com/openinsight-kr/market-pulse/internal/service"
)

// Strategy names accepted by New.
const (
	StrategyDensity = "density"
	StrategySales   = "sales"
)

// Rand is the randomness capability used by calculators. Tests inject a
// deterministic implementation; production uses math/rand/v2.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Thresholds holds the grading cutoffs. Values are configuration, not
// per-call literals.
type Thresholds struct {
	// Net-growth grading (sales strategy).
	Green float64 // net growth rate >= Green -> GREEN
	Red   float64 // net growth rate <= Red -> RED

	// Population-density grading (density strategy).
	Opportunity float64 // population per store >= Opportunity -> GREEN
	Overcrowded float64 // population per store <= Overcrowded -> RED
}

// DefaultThresholds returns the standard grading cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Green:       3.0,
		Red:         -1.0,
		Opportunity: 500.0,
		Overcrowded: 100.0,
	}
}

// Fallback bounds for the simulated store count substituted when the
// upstream signal is zero or unavailable.
const (
	fallbackStoreMin = 10
	fallbackStoreMax = 500
)

// Population-sensitivity weights. Foot-traffic-driven categories convert a
// larger share of the floating population into potential customers.
const (
	weightFootTraffic = 0.8
	weightDefault     = 0.5
)

var footTrafficCategories = map[string]struct{}{
	"카페":  {},
	"편의점": {},
}

// New constructs the calculator for the named strategy.
func New(strategy string, thresholds Thresholds, rng Rand) (service.Calculator, error) {
	if rng == nil {
		rng = systemRand{}
	}
	switch strategy {
	case StrategyDensity:
		return &DensityCalculator{thresholds: thresholds, rng: rng}, nil
	case StrategySales:
		return &SalesCalculator{thresholds: thresholds, rng: rng}, nil
	default:
		return nil, fmt.Errorf("%w: unknown grading strategy %q", common.ErrInvalidConfig, strategy)
	}
}

// systemRand adapts the process-wide math/rand/v2 generator.
type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }
func (systemRand) IntN(n int) int   { return rand.IntN(n) }

// categoryWeight resolves the population-sensitivity weight for a category
// name. Unknown names get the default weight.
func categoryWeight(categoryName string) float64 {
	if _, ok := footTrafficCategories[categoryName]; ok {
		return weightFootTraffic
	}
	return weightDefault
}

// effectiveStoreCount applies the step-1 fallback: a non-positive count is
// replaced with a bounded simulated value.
func effectiveStoreCount(storeCount int, rng Rand) (count int, simulated bool) {
	if storeCount > 0 {
		return storeCount, false
	}
	return fallbackStoreMin + rng.IntN(fallbackStoreMax-fallbackStoreMin+1), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rangeIn draws a uniform value from [lo, hi).
func rangeIn(rng Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
