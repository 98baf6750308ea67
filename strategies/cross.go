package strategies

import "math"

// Crossover reports whether a moved above b at index i: a[i] > b[i] and
// a[i-1] was not above b[i-1]. A missing previous value counts as not
// above, so the first bar where both series exist can be a crossover.
func Crossover(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	return above(a[i], b[i]) && !above(a[i-1], b[i-1])
}

// CrossAbove reports whether series rose above the constant level at i.
func CrossAbove(series []float64, level float64, i int) bool {
	if i < 1 || i >= len(series) {
		return false
	}
	return above(series[i], level) && !above(series[i-1], level)
}

// CrossBelow reports whether series fell below the constant level at i.
func CrossBelow(series []float64, level float64, i int) bool {
	if i < 1 || i >= len(series) {
		return false
	}
	return above(level, series[i]) && !above(level, series[i-1])
}

func above(a, b float64) bool {
	return !math.IsNaN(a) && !math.IsNaN(b) && a > b
}
