package metrics

import "github.com/openinsight-kr/market-pulse/internal/model"

// Sales simulation constants. Average sales per period is estimated from
// customers per store at a fixed unit price over a fixed number of
// operating days, with bounded variation.
const (
	unitPriceKRW     = 8_000
	operatingDays    = 26
	minAverageSales  = 1_000_000
	variationMin     = 0.8
	variationMax     = 1.2
	salesTierHighKRW = 50_000_000
	salesTierMidKRW  = 20_000_000
)

// Growth/closing rate ranges per sales tier. Weak markets both grow slower
// and close faster.
var (
	highTierGrowth  = [2]float64{3.0, 8.0}
	highTierClosing = [2]float64{0.5, 2.0}
	midTierGrowth   = [2]float64{1.0, 4.0}
	midTierClosing  = [2]float64{1.0, 3.0}
	lowTierGrowth   = [2]float64{0.0, 2.0}
	lowTierClosing  = [2]float64{2.0, 5.0}
)

// SalesCalculator runs the full simulation: estimated sales from potential
// customers, tiered growth/closing rates, and a net-growth grade.
type SalesCalculator struct {
	rng        Rand
	thresholds Thresholds
}

// Calculate derives a sales-simulated metrics record.
func (c *SalesCalculator) Calculate(storeCount, floatingPopulation int, categoryName string) model.MetricsRecord {
	count, simulated := effectiveStoreCount(storeCount, c.rng)

	weight := categoryWeight(categoryName)
	potentialCustomers := float64(floatingPopulation) * weight
	customersPerStore := potentialCustomers / float64(max(count, 1))

	variation := rangeIn(c.rng, variationMin, variationMax)
	averageSales := int64(customersPerStore * unitPriceKRW * operatingDays * variation)
	if averageSales < minAverageSales {
		averageSales = minAverageSales
	}

	growthRange, closingRange := tierRanges(averageSales)
	growthRate := round2(rangeIn(c.rng, growthRange[0], growthRange[1]))
	closingRate := round2(rangeIn(c.rng, closingRange[0], closingRange[1]))
	netGrowthRate := round2(growthRate - closingRate)

	return model.MetricsRecord{
		StoreCount:         count,
		FloatingPopulation: floatingPopulation,
		PopulationPerStore: round2(float64(floatingPopulation) / float64(max(count, 1))),
		AverageSales:       averageSales,
		GrowthRate:         growthRate,
		ClosingRate:        closingRate,
		NetGrowthRate:      netGrowthRate,
		Grade:              c.grade(netGrowthRate),
		IsSimulated:        simulated,
	}
}

func tierRanges(averageSales int64) (growth, closing [2]float64) {
	switch {
	case averageSales >= salesTierHighKRW:
		return highTierGrowth, highTierClosing
	case averageSales >= salesTierMidKRW:
		return midTierGrowth, midTierClosing
	default:
		return lowTierGrowth, lowTierClosing
	}
}

func (c *SalesCalculator) grade(netGrowthRate float64) model.MarketGrade {
	switch {
	case netGrowthRate >= c.thresholds.Green:
		return model.GradeGreen
	case netGrowthRate <= c.thresholds.Red:
		return model.GradeRed
	default:
		return model.GradeYellow
	}
}
