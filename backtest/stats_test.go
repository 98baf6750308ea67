package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodsPerYear(t *testing.T) {
	t.Parallel()

	weekdays := []time.Time{}
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	for len(weekdays) < 20 {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			weekdays = append(weekdays, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	assert.Equal(t, 252.0, PeriodsPerYear(weekdays))

	everyDay := []time.Time{}
	for i := 0; i < 20; i++ {
		everyDay = append(everyDay, day(i))
	}
	assert.Equal(t, 365.0, PeriodsPerYear(everyDay))

	weekly := []time.Time{}
	for i := 0; i < 10; i++ {
		weekly = append(weekly, day(7*i))
	}
	assert.Equal(t, 52.0, PeriodsPerYear(weekly))

	assert.Equal(t, 252.0, PeriodsPerYear(nil))
}

func TestDrawdowns(t *testing.T) {
	t.Parallel()

	curve := []EquityPoint{
		{Time: day(0), Equity: 100, DrawdownPct: 0},
		{Time: day(1), Equity: 90, DrawdownPct: 10},
		{Time: day(2), Equity: 80, DrawdownPct: 20},
		{Time: day(3), Equity: 110, DrawdownPct: 0},
		{Time: day(4), Equity: 99, DrawdownPct: 10},
	}

	maxDD, avgDD, dur := drawdowns(curve)
	assert.Equal(t, 20.0, maxDD)
	assert.Equal(t, 15.0, avgDD)
	assert.Equal(t, 3*24*time.Hour, dur)
}

func TestTradeStats(t *testing.T) {
	t.Parallel()

	var st Stats
	tradeStats(&st, []Trade{
		{PnL: 100, PnLPct: 10},
		{PnL: -50, PnLPct: -5},
		{PnL: 50, PnLPct: 5},
	})

	assert.Equal(t, 3, st.Trades)
	assert.InDelta(t, 200.0/3, st.WinRatePct, 1e-9)
	assert.Equal(t, 10.0, st.BestTradePct)
	assert.Equal(t, -5.0, st.WorstTradePct)
	assert.InDelta(t, 10.0/3, st.AvgTradePct, 1e-9)
	assert.Equal(t, 3.0, st.ProfitFactor)
	assert.Greater(t, st.SQN, 0.0)
}

func TestComputeStatsRisingCurve(t *testing.T) {
	t.Parallel()

	curve := []EquityPoint{}
	eq := 1000.0
	for i := 0; i < 10; i++ {
		curve = append(curve, EquityPoint{Time: day(i), Equity: eq})
		eq *= 1.01 + 0.001*float64(i%2)
	}
	st := ComputeStats(1000, nil, curve, nil, 2, 10, 0)

	assert.Greater(t, st.Sharpe, 0.0)
	assert.Equal(t, 0.0, st.Sortino)
	assert.Equal(t, 0.0, st.MaxDrawdownPct)
	assert.Equal(t, 0.0, st.Calmar)
	assert.Greater(t, st.ReturnAnnPct, 0.0)
	assert.Equal(t, 100.0, st.ExposurePct)
}
