package market

import (
	"errors"
	"math"
	"time"
)

// ErrData marks problems with the input data itself: a missing source,
// absent columns, unparseable rows or nothing left after cleaning.
var ErrData = errors.New("data error")

// Bar is one OHLCV observation. Feature columns live on the Series.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Complete reports whether every OHLCV field holds a finite value.
func (b Bar) Complete() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !b.Time.IsZero()
}
