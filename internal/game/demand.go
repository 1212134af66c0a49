package game

import "math"

// BaseDemand converts a purchase-probability percentage into unit demand.
// An unknown probability falls back to the neutral default; a known zero is
// a legitimate answer (nobody buys at that price) and stays zero.
func BaseDemand(populationSize int64, prob Probability) int64 {
	pct := prob.Percent
	if !prob.Known {
		pct = FallbackAvgProbabilityPercent
	}
	if pct <= 0 {
		return 0
	}
	return int64(math.Round(float64(populationSize) * pct / 100))
}

// ApplyMultiplier scales demand by the combined R&D multiplier, rounded.
func ApplyMultiplier(demand int64, multiplier float64) int64 {
	return int64(math.Round(float64(demand) * multiplier))
}

// RevenueFor is demand times price. Revenue feeds milestone thresholds only;
// it never credits balance.
func RevenueFor(demand, price int64) int64 {
	if price <= 0 {
		return 0
	}
	return demand * price
}
