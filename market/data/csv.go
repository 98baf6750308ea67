package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/strategylab/market"
)

// accepted names for the timestamp column, in priority order
var timeColumns = []string{"date", "datetime", "time", "timestamp"}

var priceColumns = []string{"open", "high", "low", "close", "volume"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	"20060102",
}

// ReadCSVFile reads a CSV file into a cleaned series.
func ReadCSVFile(name, path string) (*market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrData, err)
	}
	defer f.Close()
	return ReadCSV(name, f)
}

// ReadCSV parses OHLCV rows. Column names are matched case-insensitively;
// extra columns are ignored. Rows with a missing or unparseable value are
// dropped, as are duplicate timestamps after the first.
func ReadCSV(name string, r io.Reader) (*market.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: empty file", market.ErrData, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", market.ErrData, name, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}

	timeIdx := -1
	for _, c := range timeColumns {
		if i, ok := cols[c]; ok {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%w: %s: missing date column (one of %s)",
			market.ErrData, name, strings.Join(timeColumns, ", "))
	}

	idx := make([]int, len(priceColumns))
	var missing []string
	for i, c := range priceColumns {
		j, ok := cols[c]
		if !ok {
			missing = append(missing, c)
		}
		idx[i] = j
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: missing columns %s", market.ErrData, name, strings.Join(missing, ", "))
	}

	var bars []market.Bar
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", market.ErrData, name, err)
		}

		t, ok := parseTime(cell(row, timeIdx))
		if !ok {
			continue
		}
		b := market.Bar{
			Time:   t,
			Open:   parseFloat(cell(row, idx[0])),
			High:   parseFloat(cell(row, idx[1])),
			Low:    parseFloat(cell(row, idx[2])),
			Close:  parseFloat(cell(row, idx[3])),
			Volume: parseFloat(cell(row, idx[4])),
		}
		bars = append(bars, b)
	}

	return market.Clean(name, bars)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseFloat returns NaN for empty or malformed cells so the row is dropped
// by cleaning.
func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	// unix seconds or milliseconds
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) >= 9 {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}

// WriteCSV writes the series bars with a date,open,high,low,close,volume
// header. Feature columns are not written.
func WriteCSV(w io.Writer, s *market.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range s.Bars {
		err := cw.Write([]string{
			b.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the series to path.
func WriteCSVFile(path string, s *market.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
