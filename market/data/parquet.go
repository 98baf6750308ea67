package data

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/strategylab/market"
)

// BarRecord is the parquet row layout for a bar.
type BarRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ReadParquet reads bars from a parquet file into a cleaned series.
func ReadParquet(name, path string) (*market.Series, error) {
	rows, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", market.ErrData, name, err)
	}
	bars := make([]market.Bar, len(rows))
	for i, r := range rows {
		bars[i] = market.Bar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return market.Clean(name, bars)
}

// WriteParquet stores the series bars at path.
func WriteParquet(path string, s *market.Series) error {
	rows := make([]BarRecord, len(s.Bars))
	for i, b := range s.Bars {
		rows[i] = BarRecord{
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return parquet.WriteFile(path, rows)
}
