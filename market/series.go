package market

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is an ordered, time-indexed sequence of bars plus derived feature
// columns. Every feature column has exactly one value per bar.
//
// A Series is built once per asset and treated as read-only afterwards;
// Slice and WithFeature return new values instead of mutating.
type Series struct {
	Name string
	Bars []Bar

	features map[string][]float64
	order    []string
}

// NewSeries builds a series from bars that are already sorted. Use Clean
// for raw input.
func NewSeries(name string, bars []Bar) (*Series, error) {
	s := &Series{
		Name:     name,
		Bars:     bars,
		features: map[string][]float64{},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Clean sorts bars by time, drops incomplete rows and duplicate timestamps
// (keeping the first seen) and returns the resulting series.
func Clean(name string, bars []Bar) (*Series, error) {
	kept := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Complete() {
			kept = append(kept, b)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Time.Before(kept[j].Time)
	})

	out := kept[:0]
	for i, b := range kept {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s: no data after cleaning", ErrData, name)
	}
	return NewSeries(name, out)
}

// Validate checks the ordering and completeness invariants.
func (s *Series) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("%w: %s: empty series", ErrData, s.Name)
	}
	for i, b := range s.Bars {
		if !b.Complete() {
			return fmt.Errorf("%w: %s: incomplete bar at %d", ErrData, s.Name, i)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%w: %s: timestamps not strictly increasing at %d (%s)",
				ErrData, s.Name, i, b.Time.Format(time.RFC3339))
		}
	}
	for name, col := range s.features {
		if len(col) != len(s.Bars) {
			return fmt.Errorf("%w: %s: feature %s has %d values for %d bars",
				ErrData, s.Name, name, len(col), len(s.Bars))
		}
	}
	return nil
}

func (s *Series) Len() int {
	return len(s.Bars)
}

func (s *Series) Start() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].Time
}

func (s *Series) End() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Time
}

// Slice returns bars [from, to) with their feature values.
func (s *Series) Slice(from, to int) (*Series, error) {
	if from < 0 || to > len(s.Bars) || from >= to {
		return nil, fmt.Errorf("%w: %s: bad slice [%d:%d) of %d bars", ErrData, s.Name, from, to, len(s.Bars))
	}
	out := &Series{
		Name:     s.Name,
		Bars:     append([]Bar(nil), s.Bars[from:to]...),
		features: make(map[string][]float64, len(s.features)),
		order:    append([]string(nil), s.order...),
	}
	for name, col := range s.features {
		out.features[name] = append([]float64(nil), col[from:to]...)
	}
	return out, nil
}

// Head returns the first fraction of the series, used to hold out a prefix
// for optimization. At least one bar is always kept.
func (s *Series) Head(frac float64) (*Series, error) {
	if frac <= 0 || frac > 1 || math.IsNaN(frac) {
		return nil, fmt.Errorf("%w: %s: head fraction %v not in (0,1]", ErrData, s.Name, frac)
	}
	n := int(float64(len(s.Bars)) * frac)
	if n < 1 {
		n = 1
	}
	return s.Slice(0, n)
}

// WithFeature returns a copy of the series with the named column added (or
// replaced).
func (s *Series) WithFeature(name string, values []float64) (*Series, error) {
	if len(values) != len(s.Bars) {
		return nil, fmt.Errorf("%w: %s: feature %s has %d values for %d bars",
			ErrData, s.Name, name, len(values), len(s.Bars))
	}
	out := &Series{
		Name:     s.Name,
		Bars:     s.Bars,
		features: make(map[string][]float64, len(s.features)+1),
		order:    append([]string(nil), s.order...),
	}
	for k, v := range s.features {
		out.features[k] = v
	}
	if _, ok := out.features[name]; !ok {
		out.order = append(out.order, name)
	}
	out.features[name] = values
	return out, nil
}

// Feature returns the named column.
func (s *Series) Feature(name string) ([]float64, bool) {
	col, ok := s.features[name]
	return col, ok
}

// FeatureNames lists feature columns in the order they were added.
func (s *Series) FeatureNames() []string {
	return append([]string(nil), s.order...)
}

// DropLeading removes the first n bars, typically the warm-up rows left
// incomplete by indicators.
func (s *Series) DropLeading(n int) (*Series, error) {
	if n <= 0 {
		return s, nil
	}
	return s.Slice(n, len(s.Bars))
}

func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

func (s *Series) Opens() []float64 {
	return s.column(func(b Bar) float64 { return b.Open })
}

func (s *Series) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

func (s *Series) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

func (s *Series) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

func (s *Series) Volumes() []float64 {
	return s.column(func(b Bar) float64 { return b.Volume })
}

func (s *Series) column(get func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = get(b)
	}
	return out
}
