// Package indicators provides technical analysis indicators computed over
// whole price columns.
//
// Every function is causal: the value at index i depends only on inputs at
// indices <= i, so precomputed columns can be handed to a strategy without
// leaking future bars. Values are NaN until the indicator has warmed up.
package indicators

import (
	"fmt"
	"math"
)

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s: period must be positive, got %d", name, period)
	}
	return nil
}

// FirstValid returns the index of the first non-NaN value, or len(values).
func FirstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(values)
}
