package strategies

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFrom(t *testing.T, bars []market.Bar) *market.Series {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i].Time = start.AddDate(0, 0, i)
		if bars[i].Open == 0 {
			bars[i].Open = bars[i].Close
		}
	}
	s, err := market.NewSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func closesSeries(t *testing.T, closes []float64) *market.Series {
	t.Helper()
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{High: c + 1, Low: c - 1, Close: c, Volume: 1}
	}
	return seriesFrom(t, bars)
}

var cash = backtest.Settings{Asset: "TEST", Cash: 10000, Commission: 0.002}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	r := Default()
	assert.Equal(t, []string{
		"BuyAndHold", "EmaCross", "EmaCrossAdx", "FVGStrategy", "IchimokuStrategy",
		"Noop", "PriceLevelStrategy", "RsiMomentum", "SmaCross",
	}, r.Names())

	for _, alias := range []string{"SmaCross", "sma-cross", "sma_cross", " SMACROSS "} {
		spec, ok := r.Get(alias)
		require.True(t, ok, alias)
		assert.Equal(t, "SmaCross", spec.Name)
	}

	_, err := r.Lookup("nope")
	assert.ErrorIs(t, err, backtest.ErrConfig)
	assert.Contains(t, err.Error(), "SmaCross")

	assert.Error(t, r.Register(SmaCrossSpec()))
	assert.Error(t, r.Register(backtest.Spec{Name: "x"}))
	assert.Error(t, r.Register(backtest.Spec{}))
}

func TestCrossover(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	tests := []struct {
		name string
		a, b []float64
		i    int
		want bool
	}{
		{"crosses up", []float64{1, 3}, []float64{2, 2}, 1, true},
		{"already above", []float64{3, 3}, []float64{2, 2}, 1, false},
		{"touch then above", []float64{2, 3}, []float64{2, 2}, 1, true},
		{"crosses down", []float64{3, 1}, []float64{2, 2}, 1, false},
		{"missing previous", []float64{nan, 3}, []float64{nan, 2}, 1, true},
		{"missing current", []float64{1, nan}, []float64{2, 2}, 1, false},
		{"first bar", []float64{3}, []float64{2}, 0, false},
		{"out of range", []float64{1, 3}, []float64{2, 2}, 5, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Crossover(tt.a, tt.b, tt.i))
		})
	}

	assert.True(t, CrossAbove([]float64{69, 71}, 70, 1))
	assert.False(t, CrossAbove([]float64{71, 72}, 70, 1))
	assert.True(t, CrossBelow([]float64{31, 29}, 30, 1))
	assert.False(t, CrossBelow([]float64{29, 28}, 30, 1))
}

func TestSmaCrossOnRisingSeries(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := closesSeries(t, closes)

	res, err := backtest.Run(SmaCrossSpec(), s, cash, nil)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(res.Trades), 1)
	for _, tr := range res.Trades {
		assert.Equal(t, backtest.Long, tr.Side)
	}
	assert.GreaterOrEqual(t, res.Stats.EquityFinal, cash.Cash-res.Stats.Commissions)
	assert.Equal(t, 19, res.Trades[0].EntryIndex)
}

func TestSmaCrossOnSlowRise(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + 0.1*float64(i)
	}
	s := closesSeries(t, closes)

	res, err := backtest.Run(SmaCrossSpec(), s, cash, backtest.ParamSet{"n1": 5, "n2": 20})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(res.Trades), 1)
	for _, tr := range res.Trades {
		assert.Equal(t, backtest.Long, tr.Side)
	}
	assert.GreaterOrEqual(t, res.Stats.EquityFinal, cash.Cash-res.Stats.Commissions)
	assert.Len(t, res.Equity, 100)
}

func TestFlatSeriesNeverTrades(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100
	}
	s := closesSeries(t, closes)

	for _, spec := range Default().List() {
		if spec.HoldToEnd {
			continue
		}
		spec := spec
		t.Run(spec.Name, func(t *testing.T) {
			t.Parallel()
			res, err := backtest.Run(spec, s, cash, nil)
			require.NoError(t, err)
			assert.Empty(t, res.Trades)
			assert.Nil(t, res.Open)
			for _, p := range res.Equity {
				assert.Equal(t, cash.Cash, p.Equity)
			}
		})
	}
}

func TestBuyAndHoldKeepsPosition(t *testing.T) {
	t.Parallel()

	s := closesSeries(t, []float64{100, 105, 110, 120})
	res, err := backtest.Run(BuyAndHoldSpec(), s, backtest.Settings{Cash: 10000}, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	require.NotNil(t, res.Open)
	assert.Equal(t, 0, res.Open.EntryIndex)
	assert.Equal(t, 99.0, res.Open.Size)
	assert.InDelta(t, 10000-99*100+99*120, res.Stats.EquityFinal, 1e-9)
	assert.InDelta(t, 20.0, res.Stats.BuyHoldReturnPct, 1e-9)
}

func TestRsiMomentumBuysOversold(t *testing.T) {
	t.Parallel()

	closes := []float64{}
	for i := 0; i < 20; i++ {
		closes = append(closes, 100-2*float64(i))
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 62+3*float64(i))
	}
	s := closesSeries(t, closes)

	res, err := backtest.Run(RsiMomentumSpec(), s, cash, backtest.ParamSet{"rsi_period": 5})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, backtest.Long, tr.Side)
	// first RSI value is already oversold
	assert.Equal(t, 5, tr.EntryIndex)
	assert.Equal(t, "rsi overbought", tr.ExitReason)
}

func TestFVGEntersOnPullback(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{
		{High: 10, Low: 9, Close: 9.5},
		{High: 10, Low: 9, Close: 9.5},
		{High: 10, Low: 9, Close: 9.5},
		{High: 10.5, Low: 9.5, Close: 10},
		{High: 12, Low: 10.5, Close: 11.8},
		{High: 13, Low: 12.2, Close: 12.5},
		{High: 13.5, Low: 12.5, Close: 13},
		{High: 13, Low: 12.1, Close: 12.4},
		{High: 12.6, Low: 12.2, Close: 12.5},
	}
	s := seriesFrom(t, bars)

	res, err := backtest.Run(FVGSpec(), s, cash, backtest.ParamSet{"atr_period": 3})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, backtest.Long, tr.Side)
	assert.Equal(t, 7, tr.EntryIndex)
	assert.Equal(t, backtest.ReasonEnd, tr.ExitReason)
}

func TestStrategyParamValidation(t *testing.T) {
	t.Parallel()

	s := closesSeries(t, []float64{1, 2, 3})
	tests := []struct {
		spec   backtest.Spec
		params backtest.ParamSet
	}{
		{SmaCrossSpec(), backtest.ParamSet{"n1": 0}},
		{SmaCrossSpec(), backtest.ParamSet{"n1": 2.5}},
		{RsiMomentumSpec(), backtest.ParamSet{"upper_bound": 120}},
		{PriceLevelSpec(), backtest.ParamSet{"lookback_period": -1}},
		{IchimokuSpec(), backtest.ParamSet{"atr_threshold": -0.1}},
		{FVGSpec(), backtest.ParamSet{"sl_atr_multiplier": 0}},
		{EmaCrossSpec(), backtest.ParamSet{"stop_pct": 0}},
	}

	for _, tt := range tests {
		_, err := backtest.Run(tt.spec, s, cash, tt.params)
		assert.ErrorIs(t, err, backtest.ErrConfig, "%s %s", tt.spec.Name, tt.params)
	}
}

func TestStrategiesAreDeterministic(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i)/10
	}
	s := closesSeries(t, closes)

	for _, spec := range Default().List() {
		a, err := backtest.Run(spec, s, cash, nil)
		require.NoError(t, err, spec.Name)
		b, err := backtest.Run(spec, s, cash, nil)
		require.NoError(t, err, spec.Name)
		assert.Equal(t, a, b, spec.Name)
		assert.Len(t, a.Equity, s.Len(), spec.Name)
	}
}

func TestEmaCrossAdxGate(t *testing.T) {
	t.Parallel()

	// fall then rise
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + math.Abs(float64(i-60))
	}
	s := closesSeries(t, closes)

	res, err := backtest.Run(EmaCrossAdxSpec(), s, cash, backtest.ParamSet{"adx_threshold": 0})
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)
	last := res.Trades[len(res.Trades)-1]
	assert.Equal(t, backtest.Long, last.Side)
	assert.Equal(t, backtest.ReasonEnd, last.ExitReason)

	// ADX never warms up, so no cross is traded
	res, err = backtest.Run(EmaCrossAdxSpec(), s, cash, backtest.ParamSet{"adx_period": 70})
	require.NoError(t, err)
	assert.Empty(t, res.Trades)

	_, err = backtest.Run(EmaCrossAdxSpec(), s, cash, backtest.ParamSet{"fast_period": 30})
	assert.ErrorIs(t, err, backtest.ErrConfig)
}
