package risk

import "math"

// PlannedRisk is the absolute loss if the stop is hit.
func PlannedRisk(units, entry, stop float64) float64 {
	return units * math.Abs(entry-stop)
}

// RR is the reward to risk ratio of a bracket.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is planned risk as a fraction of equity.
func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}

// Bracket places a stop stopPct away from entry on the losing side and a
// target at rr times the risk on the winning side. dir is +1 long, -1 short.
func Bracket(entry, stopPct, rr float64, dir int) (stop, take float64) {
	d := entry * stopPct
	if dir > 0 {
		return entry - d, entry + rr*d
	}
	return entry + d, entry - rr*d
}
