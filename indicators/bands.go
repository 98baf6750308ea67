package indicators

import (
	"math"
)

// RollingMin returns the minimum over a trailing window. minPeriods controls
// how many values are required before a result is produced; minPeriods <= 0
// means the full window.
func RollingMin(values []float64, period, minPeriods int) ([]float64, error) {
	return rolling("RollingMin", values, period, minPeriods, math.Min)
}

// RollingMax is the trailing-window maximum, see RollingMin.
func RollingMax(values []float64, period, minPeriods int) ([]float64, error) {
	return rolling("RollingMax", values, period, minPeriods, math.Max)
}

func rolling(name string, values []float64, period, minPeriods int, pick func(a, b float64) float64) ([]float64, error) {
	if err := checkPeriod(name, period); err != nil {
		return nil, err
	}
	if minPeriods <= 0 || minPeriods > period {
		minPeriods = period
	}
	out := nans(len(values))
	for i := range values {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		n := 0
		acc := math.NaN()
		for j := lo; j <= i; j++ {
			if math.IsNaN(values[j]) {
				continue
			}
			if n == 0 {
				acc = values[j]
			} else {
				acc = pick(acc, values[j])
			}
			n++
		}
		if n >= minPeriods {
			out[i] = acc
		}
	}
	return out, nil
}

// Midpoint is (highest high + lowest low) / 2 over a full trailing window;
// the Ichimoku conversion and base lines are built from it.
func Midpoint(high, low []float64, period int) ([]float64, error) {
	hi, err := RollingMax(high, period, period)
	if err != nil {
		return nil, err
	}
	lo, err := RollingMin(low, period, period)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(hi))
	for i := range hi {
		out[i] = (hi[i] + lo[i]) / 2
	}
	return out, nil
}

// Bollinger returns the middle (SMA), upper and lower bands at k population
// standard deviations.
func Bollinger(values []float64, period int, k float64) (mid, upper, lower []float64, err error) {
	mid, err = SMA(values, period)
	if err != nil {
		return nil, nil, nil, err
	}
	upper = nans(len(values))
	lower = nans(len(values))
	for i := range values {
		if math.IsNaN(mid[i]) {
			continue
		}
		ss := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mid[i]
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return mid, upper, lower, nil
}

// MACD returns the MACD line (fast EMA - slow EMA), its signal EMA and the
// histogram.
func MACD(values []float64, fast, slow, signal int) (line, sig, hist []float64, err error) {
	f, err := EMA(values, fast)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := EMA(values, slow)
	if err != nil {
		return nil, nil, nil, err
	}
	line = make([]float64, len(values))
	for i := range values {
		line[i] = f[i] - s[i]
	}
	sig, err = EMA(line, signal)
	if err != nil {
		return nil, nil, nil, err
	}
	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist, nil
}
