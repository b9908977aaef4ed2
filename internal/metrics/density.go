package metrics

import "github.com/openinsight-kr/market-pulse/internal/model"

// DensityCalculator grades a pair directly from population per store. This
// is the simpler mode, used when sales simulation is not wanted: a market
// with plenty of people per store is an opportunity, one with too few is
// overcrowded.
type DensityCalculator struct {
	rng        Rand
	thresholds Thresholds
}

// Calculate derives a density-graded metrics record.
func (c *DensityCalculator) Calculate(storeCount, floatingPopulation int, _ string) model.MetricsRecord {
	count, simulated := effectiveStoreCount(storeCount, c.rng)

	popPerStore := round2(float64(floatingPopulation) / float64(max(count, 1)))

	return model.MetricsRecord{
		StoreCount:         count,
		FloatingPopulation: floatingPopulation,
		PopulationPerStore: popPerStore,
		Grade:              c.grade(popPerStore),
		IsSimulated:        simulated,
	}
}

func (c *DensityCalculator) grade(popPerStore float64) model.MarketGrade {
	switch {
	case popPerStore >= c.thresholds.Opportunity:
		return model.GradeGreen
	case popPerStore <= c.thresholds.Overcrowded:
		return model.GradeRed
	default:
		return model.GradeYellow
	}
}
