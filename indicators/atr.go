package indicators

import (
	"fmt"
	"math"
)

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first
// bar has no previous close and uses high-low.
func TrueRange(high, low, closes []float64) ([]float64, error) {
	if len(high) != len(low) || len(high) != len(closes) {
		return nil, fmt.Errorf("TrueRange: column lengths differ (%d,%d,%d)", len(high), len(low), len(closes))
	}
	tr := make([]float64, len(high))
	for i := range high {
		hl := high[i] - low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr, nil
}

// ATR calculates the Average True Range with Wilder's smoothing.
func ATR(high, low, closes []float64, period int) ([]float64, error) {
	if err := checkPeriod("ATR", period); err != nil {
		return nil, err
	}
	tr, err := TrueRange(high, low, closes)
	if err != nil {
		return nil, err
	}
	return RMA(tr, period)
}

// RSI calculates the Relative Strength Index with Wilder's smoothing. When a
// window has neither gains nor losses the value is 50.
func RSI(closes []float64, period int) ([]float64, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return nil, err
	}
	out := nans(len(closes))
	if len(closes) <= period {
		return out, nil
	}

	gains := nans(len(closes))
	losses := nans(len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}

	avgGain, err := RMA(gains, period)
	if err != nil {
		return nil, err
	}
	avgLoss, err := RMA(losses, period)
	if err != nil {
		return nil, err
	}

	for i := range closes {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
		case g == 0 && l == 0:
			out[i] = 50
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out, nil
}
