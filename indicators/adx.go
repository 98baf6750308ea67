package indicators

import (
	"fmt"
	"math"
)

// DirectionalIndex holds the Wilder directional movement columns.
type DirectionalIndex struct {
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64
}

// ADX computes the Average Directional Index (Wilder).
//
// Warmup:
//   - +DI/-DI need period bar-to-bar changes, so they start at index period
//   - ADX seeds from the average of the first period DX values and starts
//     at index 2*period-1
func ADX(high, low, closes []float64, period int) (DirectionalIndex, error) {
	if err := checkPeriod("ADX", period); err != nil {
		return DirectionalIndex{}, err
	}
	if len(high) != len(low) || len(high) != len(closes) {
		return DirectionalIndex{}, fmt.Errorf("ADX: column lengths differ (%d,%d,%d)", len(high), len(low), len(closes))
	}

	n := len(closes)
	out := DirectionalIndex{PlusDI: nans(n), MinusDI: nans(n), ADX: nans(n)}
	nf := float64(period)

	var smTR, smPlus, smMinus, dxSum, adx float64
	dxCount := 0
	for i := 1; i < n; i++ {
		tr := math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		var plusDM, minusDM float64
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}

		// first period changes are summed, then smoothed
		if i <= period {
			smTR += tr
			smPlus += plusDM
			smMinus += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/nf + tr
			smPlus = smPlus - smPlus/nf + plusDM
			smMinus = smMinus - smMinus/nf + minusDM
		}

		pdi, mdi := directional(smPlus, smMinus, smTR)
		out.PlusDI[i], out.MinusDI[i] = pdi, mdi
		dx := dxValue(pdi, mdi)

		if dxCount < period {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / nf
				out.ADX[i] = adx
			}
			continue
		}
		adx = (adx*(nf-1) + dx) / nf
		out.ADX[i] = adx
	}
	return out, nil
}

func directional(smPlus, smMinus, smTR float64) (float64, float64) {
	if smTR <= 0 {
		return 0, 0
	}
	return 100 * smPlus / smTR, 100 * smMinus / smTR
}

func dxValue(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / den
}
