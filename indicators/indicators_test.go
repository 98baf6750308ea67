package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/strategylab/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	t.Parallel()

	out, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, []float64{2, 3, 4}, out[2:])

	_, err = SMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestSMASkipsNaNWindows(t *testing.T) {
	t.Parallel()

	out, err := SMA([]float64{math.NaN(), 2, 4, 6}, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 3.0, out[2])
	assert.Equal(t, 5.0, out[3])
}

func TestEMA(t *testing.T) {
	t.Parallel()

	out, err := EMA([]float64{2, 4, 6, 8}, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 4.0, out[2])
	// multiplier 0.5: (8-4)*0.5+4
	assert.Equal(t, 6.0, out[3])
}

func TestIndicatorsAreCausal(t *testing.T) {
	t.Parallel()

	closes := []float64{10, 11, 12, 11, 13, 15, 14, 16, 18, 17, 19, 21}
	full, err := RSI(closes, 4)
	require.NoError(t, err)

	closes[len(closes)-1] = 1
	changed, err := RSI(closes, 4)
	require.NoError(t, err)

	for i := 0; i < len(closes)-1; i++ {
		if math.IsNaN(full[i]) {
			assert.True(t, math.IsNaN(changed[i]))
			continue
		}
		assert.Equal(t, full[i], changed[i], "index %d", i)
	}
}

func TestRSIBounds(t *testing.T) {
	t.Parallel()

	rising := []float64{1, 2, 3, 4, 5, 6}
	out, err := RSI(rising, 3)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out[5])

	flat := []float64{5, 5, 5, 5, 5}
	out, err = RSI(flat, 3)
	require.NoError(t, err)
	assert.Equal(t, 50.0, out[4])
}

func TestTrueRangeAndATR(t *testing.T) {
	t.Parallel()

	high := []float64{10, 11, 12, 11, 12, 13}
	low := []float64{8, 9, 10, 9, 10, 11}
	closes := []float64{9, 10, 11, 10, 11, 12}

	tr, err := TrueRange(high, low, closes)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2, 2, 2, 2}, tr)

	atr, err := ATR(high, low, closes, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(atr[1]))
	assert.InDelta(t, 2.0, atr[2], 1e-12)
	assert.InDelta(t, 2.0, atr[5], 1e-12)

	_, err = TrueRange(high, low[:2], closes)
	assert.Error(t, err)
}

func TestRollingMinMax(t *testing.T) {
	t.Parallel()

	v := []float64{3, 1, 4, 1, 5, 9, 2}

	mn, err := RollingMin(v, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 1, 1, 1, 1, 2}, mn)

	mx, err := RollingMax(v, 3, 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(mx[1]))
	assert.Equal(t, []float64{4, 4, 5, 9, 9}, mx[2:])
}

func TestMidpoint(t *testing.T) {
	t.Parallel()

	mid, err := Midpoint([]float64{10, 12, 11}, []float64{8, 9, 7}, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(mid[0]))
	assert.Equal(t, 10.0, mid[1])
	assert.Equal(t, 9.5, mid[2])
}

func TestBollingerAndMACD(t *testing.T) {
	t.Parallel()

	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	mid, up, lo, err := Bollinger(flat, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 5.0, mid[7])
	assert.Equal(t, 5.0, up[7])
	assert.Equal(t, 5.0, lo[7])

	line, sig, hist, err := MACD(flat, 2, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, line[7])
	assert.Equal(t, 0.0, sig[7])
	assert.Equal(t, 0.0, hist[7])
}

func TestAddFeatures(t *testing.T) {
	t.Parallel()

	bars := make([]market.Bar, 40)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i%5)
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	s, err := market.NewSeries("X", bars)
	require.NoError(t, err)

	out, err := AddFeatures(s)
	require.NoError(t, err)
	assert.Equal(t, 40-14, out.Len())
	assert.Equal(t, []string{FeatureRSI, FeatureATR}, out.FeatureNames())

	rsi, _ := out.Feature(FeatureRSI)
	for _, v := range rsi {
		assert.False(t, math.IsNaN(v))
	}

	short, err := market.NewSeries("Y", bars[:10])
	require.NoError(t, err)
	_, err = AddFeatures(short)
	assert.ErrorIs(t, err, market.ErrData)
}

func TestADX(t *testing.T) {
	t.Parallel()

	// steady uptrend: every change is +DM only
	n := 20
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
		high[i] = closes[i] + 1
		low[i] = closes[i] - 1
	}

	di, err := ADX(high, low, closes, 5)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(di.PlusDI[4]))
	assert.False(t, math.IsNaN(di.PlusDI[5]))
	assert.True(t, math.IsNaN(di.ADX[8]))
	assert.InDelta(t, 100.0, di.ADX[9], 1e-9)
	assert.InDelta(t, 100.0, di.ADX[n-1], 1e-9)
	assert.Zero(t, di.MinusDI[n-1])
	// TR is 2 and +DM is 1 on every bar
	assert.InDelta(t, 50.0, di.PlusDI[n-1], 1e-9)

	_, err = ADX(high, low[:3], closes, 5)
	assert.Error(t, err)
	_, err = ADX(high, low, closes, 0)
	assert.Error(t, err)
}
