package risk

import "math"

type Inputs struct {
	Equity     float64
	RiskPct    float64 // 0.01 risks 1% of equity if the stop is hit
	EntryPrice float64
	StopPrice  float64
}

type Result struct {
	Units        float64
	StopDistance float64
	RiskAmount   float64
}

// Calculate sizes a position so that hitting the stop loses RiskPct of
// equity. Units are floored; a zero stop distance sizes to zero.
func Calculate(in Inputs) Result {
	stopDist := math.Abs(in.EntryPrice - in.StopPrice)
	riskAmt := in.Equity * in.RiskPct

	res := Result{StopDistance: stopDist, RiskAmount: riskAmt}
	if stopDist <= 0 || riskAmt <= 0 || math.IsNaN(stopDist) || math.IsInf(stopDist, 0) {
		return res
	}
	res.Units = math.Floor(riskAmt / stopDist)
	return res
}

// Affordable caps units to what equity can pay for at price including the
// commission fraction.
func Affordable(units, equity, price, commission float64) float64 {
	if price <= 0 {
		return 0
	}
	max := math.Floor(equity / (price * (1 + commission)))
	return math.Max(0, math.Min(units, max))
}
