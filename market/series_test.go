package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func bar(i int, c float64) Bar {
	return Bar{Time: day(i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
}

func TestCleanSortsDropsAndDedupes(t *testing.T) {
	t.Parallel()

	raw := []Bar{
		bar(2, 102),
		bar(0, 100),
		{Time: day(1), Open: math.NaN(), High: 1, Low: 1, Close: 1, Volume: 1},
		bar(1, 101),
		bar(2, 999), // duplicate timestamp, first one wins
	}

	s, err := Clean("AAPL", raw)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100, 101, 102}, s.Closes())
	assert.Equal(t, day(0), s.Start())
	assert.Equal(t, day(2), s.End())
}

func TestCleanEmpty(t *testing.T) {
	t.Parallel()

	_, err := Clean("X", []Bar{{Time: day(0), Close: math.NaN()}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrData))
}

func TestNewSeriesRejectsUnordered(t *testing.T) {
	t.Parallel()

	_, err := NewSeries("X", []Bar{bar(1, 1), bar(0, 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrData)
	assert.Contains(t, err.Error(), "strictly increasing")
}

func TestSliceAndHead(t *testing.T) {
	t.Parallel()

	bars := make([]Bar, 10)
	for i := range bars {
		bars[i] = bar(i, float64(100+i))
	}
	s, err := NewSeries("X", bars)
	require.NoError(t, err)

	feat := make([]float64, 10)
	for i := range feat {
		feat[i] = float64(i)
	}
	s, err = s.WithFeature("idx", feat)
	require.NoError(t, err)

	h, err := s.Head(0.5)
	require.NoError(t, err)
	assert.Equal(t, 5, h.Len())
	col, ok := h.Feature("idx")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, col)

	// the slice is a copy
	h.Bars[0].Close = -1
	assert.Equal(t, 100.0, s.Bars[0].Close)

	_, err = s.Slice(5, 5)
	assert.ErrorIs(t, err, ErrData)

	_, err = s.Head(0)
	assert.ErrorIs(t, err, ErrData)
}

func TestWithFeatureLengthMismatch(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("X", []Bar{bar(0, 1), bar(1, 2)})
	require.NoError(t, err)

	_, err = s.WithFeature("bad", []float64{1})
	assert.ErrorIs(t, err, ErrData)

	s2, err := s.WithFeature("a", []float64{1, 2})
	require.NoError(t, err)
	s3, err := s2.WithFeature("b", []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s3.FeatureNames())
	assert.Empty(t, s.FeatureNames())
}

func TestDropLeading(t *testing.T) {
	t.Parallel()

	s, err := NewSeries("X", []Bar{bar(0, 1), bar(1, 2), bar(2, 3)})
	require.NoError(t, err)

	d, err := s.DropLeading(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, d.Closes())

	_, err = s.DropLeading(3)
	assert.ErrorIs(t, err, ErrData)
}
