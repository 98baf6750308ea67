package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	recordFixture(t, j, "RUN1")
	recordFixture(t, j, "RUN2")

	res := fixtureResult()
	res.Asset = "AAPL"
	trades, equity := Records("RUN3", res)
	require.NoError(t, j.RecordBacktest(ctx, NewBacktestRun("RUN3", res), trades, equity))

	all, err := j.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	goog, err := j.ListRuns(ctx, RunFilter{Strategy: "SmaCross", Asset: "GOOG"})
	require.NoError(t, err)
	assert.Len(t, goog, 2)

	one, err := j.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)

	none, err := j.ListRuns(ctx, RunFilter{Strategy: "Noop"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	recordFixture(t, j, "RUN1")

	got, err := j.ListTradesClosedBetween(context.Background(), day(3), day(5))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Seq)

	got, err = j.ListTradesClosedBetween(context.Background(), day(0), day(6))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTradeTotals(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	recordFixture(t, j, "RUN1")

	tot, err := j.TradeTotals(context.Background(), "RUN1")
	require.NoError(t, err)
	assert.InDelta(t, 95.8, tot.GrossProfit, 1e-9)
	assert.InDelta(t, 27.25, tot.GrossLoss, 1e-9)
	assert.InDelta(t, 95.8/27.25, tot.ProfitFactor, 1e-9)

	empty, err := j.TradeTotals(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, empty.ProfitFactor)
}
