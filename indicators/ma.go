package indicators

import (
	"math"
)

// SMA calculates the simple moving average over a trailing window. A window
// containing a NaN yields NaN.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return nil, err
	}
	out := nans(len(values))

	sum := 0.0
	bad := 0
	for i, v := range values {
		if math.IsNaN(v) {
			bad++
		} else {
			sum += v
		}
		if i >= period {
			old := values[i-period]
			if math.IsNaN(old) {
				bad--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && bad == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA calculates the exponential moving average, seeded with the SMA of the
// first period valid values.
func EMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return nil, err
	}
	out := nans(len(values))
	start := FirstValid(values)
	if len(values)-start < period {
		return out, nil
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := start; i < start+period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)
	out[start+period-1] = ema

	for i := start + period; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out, nil
}

// RMA is Wilder's smoothing (alpha = 1/period), seeded with an SMA.
func RMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("RMA", period); err != nil {
		return nil, err
	}
	out := nans(len(values))
	start := FirstValid(values)
	if len(values)-start < period {
		return out, nil
	}

	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	avg := sum / float64(period)
	out[start+period-1] = avg

	for i := start + period; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		avg = (avg*float64(period-1) + values[i]) / float64(period)
		out[i] = avg
	}
	return out, nil
}
