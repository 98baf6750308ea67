package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/strategylab/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted is a test strategy driven by a per-bar callback.
type scripted struct {
	next  func(ctx *Context)
	calls []int
}

func (s *scripted) Init(*market.Series) error { return nil }

func (s *scripted) Next(ctx *Context) {
	s.calls = append(s.calls, ctx.Index())
	if s.next != nil {
		s.next(ctx)
	}
}

func specFor(s Strategy) Spec {
	return Spec{
		Name: "scripted",
		New:  func(ParamSet) (Strategy, error) { return s, nil },
	}
}

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func seriesOf(t *testing.T, closes ...float64) *market.Series {
	t.Helper()
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Time: day(i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	s, err := market.NewSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func settings(commission float64) Settings {
	return Settings{Asset: "TEST", Cash: 10000, Commission: commission}
}

func TestEquityCurveMatchesSeries(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 101, 102, 101, 103, 104)
	strat := &scripted{next: func(ctx *Context) {
		if ctx.Index() == 1 {
			ctx.Buy(Order{})
		}
	}}

	res, err := Run(specFor(strat), s, settings(0.001), nil)
	require.NoError(t, err)

	require.Len(t, res.Equity, s.Len())
	for i, p := range res.Equity {
		assert.Equal(t, s.Bars[i].Time, p.Time)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, strat.calls)
	assert.Equal(t, 10000.0, res.Equity[0].Equity)
}

func TestNoTradesIsNeutral(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 90, 120, 80, 110)
	res, err := Run(specFor(&scripted{}), s, settings(0.002), nil)
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Nil(t, res.Open)
	assert.Equal(t, 10000.0, res.Stats.EquityFinal)
	assert.Equal(t, 0.0, res.Stats.ReturnPct)
	assert.Equal(t, 0.0, res.Stats.Sharpe)
	assert.Equal(t, 0.0, res.Stats.Sortino)
	assert.Equal(t, 0.0, res.Stats.Calmar)
	assert.Equal(t, 0.0, res.Stats.ReturnAnnPct)
	for _, p := range res.Equity {
		assert.Equal(t, 10000.0, p.Equity)
	}
	assert.InDelta(t, 10.0, res.Stats.BuyHoldReturnPct, 1e-9)
}

func TestRoundTripCommission(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 100, 105, 110, 110)
	strat := &scripted{next: func(ctx *Context) {
		switch ctx.Index() {
		case 1:
			require.True(t, ctx.Buy(Order{Size: 10}))
		case 3:
			require.True(t, ctx.ClosePosition(""))
		}
	}}

	res, err := Run(specFor(strat), s, settings(0.01), nil)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	// cash - units*entry*(1+c) + units*exit*(1-c)
	want := 10000 - 10*100*1.01 + 10*110*0.99
	assert.InDelta(t, want, res.Stats.EquityFinal, 1e-9)
	assert.InDelta(t, 79.0, tr.PnL, 1e-9)
	assert.InDelta(t, 21.0, tr.Commission, 1e-9)
	assert.InDelta(t, 21.0, res.Stats.Commissions, 1e-9)
	assert.Equal(t, "SIGNAL", tr.ExitReason)
	assert.Equal(t, 1, tr.EntryIndex)
	assert.Equal(t, 3, tr.ExitIndex)
}

func TestSinglePositionAtATime(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 101, 102, 103, 104)
	opened := 0
	strat := &scripted{next: func(ctx *Context) {
		if ctx.Buy(Order{Size: 1}) {
			opened++
		}
		_, open := ctx.Position()
		assert.True(t, open)
	}}

	res, err := Run(specFor(strat), s, settings(0), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, opened)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, ReasonEnd, res.Trades[0].ExitReason)
	assert.Equal(t, 4, res.Trades[0].ExitIndex)
}

func TestStopLossTakesPrecedence(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{
		{Time: day(0), Open: 100, High: 101, Low: 99, Close: 100},
		{Time: day(1), Open: 100, High: 106, Low: 94, Close: 100},
		{Time: day(2), Open: 100, High: 101, Low: 99, Close: 100},
	}
	s, err := market.NewSeries("TEST", bars)
	require.NoError(t, err)

	strat := &scripted{next: func(ctx *Context) {
		if ctx.Index() == 0 {
			require.True(t, ctx.Buy(Order{Size: 10, StopLoss: 95, TakeProfit: 105}))
		}
	}}

	res, err := Run(specFor(strat), s, settings(0), nil)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, 95.0, tr.ExitPrice)
	assert.Equal(t, ReasonStopAndTake, tr.ExitReason)
	assert.InDelta(t, -50.0, tr.PnL, 1e-9)
	// Next is skipped on the bar the bracket fired
	assert.Equal(t, []int{0, 2}, strat.calls)
}

func TestCheckExit(t *testing.T) {
	t.Parallel()

	bar := market.Bar{High: 110, Low: 90}
	tests := []struct {
		name   string
		pos    Position
		px     float64
		reason string
		hit    bool
	}{
		{"flat", Position{}, 0, "", false},
		{"long take", Position{Open: true, Side: Long, TakeProfit: 105}, 105, ReasonTake, true},
		{"long stop", Position{Open: true, Side: Long, StopLoss: 95}, 95, ReasonStop, true},
		{"long both", Position{Open: true, Side: Long, StopLoss: 95, TakeProfit: 105}, 95, ReasonStopAndTake, true},
		{"long none", Position{Open: true, Side: Long, StopLoss: 80, TakeProfit: 120}, 0, "", false},
		{"short stop", Position{Open: true, Side: Short, StopLoss: 108}, 108, ReasonStop, true},
		{"short take", Position{Open: true, Side: Short, TakeProfit: 92}, 92, ReasonTake, true},
		{"short both", Position{Open: true, Side: Short, StopLoss: 108, TakeProfit: 92}, 108, ReasonStopAndTake, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			px, reason, hit := checkExit(tt.pos, bar)
			assert.Equal(t, tt.hit, hit)
			assert.Equal(t, tt.px, px)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestShortAccounting(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 100, 90, 90)
	strat := &scripted{next: func(ctx *Context) {
		switch ctx.Index() {
		case 1:
			require.True(t, ctx.Sell(Order{Size: 10}))
		case 2:
			assert.InDelta(t, 10100.0, ctx.Equity(), 1e-9)
			ctx.ClosePosition("cover")
		}
	}}

	res, err := Run(specFor(strat), s, settings(0), nil)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, Short, res.Trades[0].Side)
	assert.InDelta(t, 100.0, res.Trades[0].PnL, 1e-9)
	assert.InDelta(t, 10100.0, res.Stats.EquityFinal, 1e-9)
}

func TestHoldToEndKeepsPosition(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 110, 120)
	strat := &scripted{next: func(ctx *Context) {
		if ctx.Index() == 0 {
			ctx.Buy(Order{Size: 10})
		}
	}}
	spec := specFor(strat)
	spec.HoldToEnd = true

	res, err := Run(spec, s, settings(0), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	require.NotNil(t, res.Open)
	assert.Equal(t, 10.0, res.Open.Size)
	assert.InDelta(t, 10200.0, res.Stats.EquityFinal, 1e-9)
	assert.InDelta(t, 2.0, res.Stats.ReturnPct, 1e-9)
	assert.InDelta(t, 100.0, res.Stats.ExposurePct, 1e-9)
}

func TestOrderSizing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		size  float64
		units float64
	}{
		{"fraction", 0.5, 50},
		{"default", 0, 99},
		{"absolute", 5, 5},
		{"absolute floors", 5.7, 5},
		{"unaffordable", 200, 0},
		{"negative", -1, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(nil, Config{Cash: 10000})
			assert.Equal(t, tt.units, e.units(tt.size, 100))
		})
	}
}

func TestInvalidBracketsRejectOrder(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 100)
	strat := &scripted{next: func(ctx *Context) {
		if ctx.Index() != 0 {
			return
		}
		assert.False(t, ctx.Buy(Order{StopLoss: 101}))
		assert.False(t, ctx.Buy(Order{TakeProfit: 99}))
		assert.False(t, ctx.Sell(Order{StopLoss: 99}))
		assert.False(t, ctx.Buy(Order{StopLoss: math.NaN()}))
		assert.False(t, ctx.ClosePosition(""))
	}}

	res, err := Run(specFor(strat), s, settings(0), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 10000.0, res.Stats.EquityFinal)
}

func TestContextHidesFutureBars(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 1, 2, 3, 4)
	s, err := s.WithFeature("f", []float64{10, 20, 30, 40})
	require.NoError(t, err)

	strat := &scripted{next: func(ctx *Context) {
		assert.Len(t, ctx.Bars(), ctx.Index()+1)
		assert.Len(t, ctx.Closes(), ctx.Index()+1)
		f, ok := ctx.Feature("f")
		require.True(t, ok)
		assert.Len(t, f, ctx.Index()+1)
		_, ok = ctx.Feature("missing")
		assert.False(t, ok)
	}}

	_, err = Run(specFor(strat), s, settings(0), nil)
	require.NoError(t, err)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 100, 102, 99, 104, 101, 108, 103, 110)
	mk := func() Spec {
		return specFor(&scripted{next: func(ctx *Context) {
			if ctx.Index()%3 == 0 {
				ctx.Buy(Order{Size: 0.5})
			}
			if ctx.Index()%3 == 2 {
				ctx.ClosePosition("")
			}
		}})
	}

	a, err := Run(mk(), s, settings(0.002), nil)
	require.NoError(t, err)
	b, err := Run(mk(), s, settings(0.002), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	s := seriesOf(t, 1, 2)

	_, err := Run(specFor(&scripted{}), s, Settings{Cash: 0}, nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = Run(specFor(&scripted{}), s, Settings{Cash: 100, Commission: 1}, nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = Run(specFor(&scripted{}), s, settings(0), ParamSet{"nope": 1})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = Run(Spec{Name: "x"}, s, settings(0), nil)
	assert.Error(t, err)

	failing := Spec{Name: "bad", New: func(ParamSet) (Strategy, error) {
		return nil, errors.New("boom")
	}}
	_, err = Run(failing, s, settings(0), nil)
	assert.EqualError(t, err, "bad: boom")
}
