package journal

import (
	"time"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/optimize"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time { return t0.AddDate(0, 0, i) }

func fixtureResult() *backtest.Result {
	return &backtest.Result{
		Strategy: "SmaCross",
		Asset:    "GOOG",
		Params:   backtest.ParamSet{"n1": 10, "n2": 20},
		Settings: backtest.Settings{Asset: "GOOG", Cash: 10000, Commission: 0.002},
		Trades: []backtest.Trade{
			{
				EntryTime: day(1), ExitTime: day(3), EntryIndex: 1, ExitIndex: 3,
				Side: backtest.Long, Size: 10, EntryPrice: 100, ExitPrice: 110,
				PnL: 95.8, PnLPct: 9.58, Commission: 4.2, ExitReason: "SIGNAL",
			},
			{
				EntryTime: day(4), ExitTime: day(5), EntryIndex: 4, ExitIndex: 5,
				Side: backtest.Short, Size: 5, EntryPrice: 110, ExitPrice: 115,
				PnL: -27.25, PnLPct: -4.95, Commission: 2.25, ExitReason: backtest.ReasonStop,
			},
		},
		Equity: []backtest.EquityPoint{
			{Time: day(0), Equity: 10000},
			{Time: day(1), Equity: 9998},
			{Time: day(2), Equity: 10050},
			{Time: day(3), Equity: 10095.8},
			{Time: day(4), Equity: 10094.7, DrawdownPct: 0.01},
			{Time: day(5), Equity: 10068.55, DrawdownPct: 0.27},
		},
		Stats: backtest.Stats{
			Start: day(0), End: day(5), Trades: 2, EquityFinal: 10068.55,
			ReturnPct: 0.6855, WinRatePct: 50, ProfitFactor: 3.5156, MaxDrawdownPct: 0.27, Sharpe: 1.2,
		},
	}
}

func fixtureSurface() *optimize.Result {
	ev := func(idx int64, n1, n2, score float64) optimize.Evaluation {
		return optimize.Evaluation{
			Index:  idx,
			Params: backtest.ParamSet{"n1": n1, "n2": n2},
			Score:  score,
			Stats:  backtest.Stats{Sharpe: score, Trades: 3},
		}
	}
	surface := []optimize.Evaluation{
		ev(0, 5, 20, 0.4),
		ev(1, 5, 30, 1.1),
		ev(2, 10, 20, 0.9),
		ev(3, 10, 30, -0.2),
	}
	return &optimize.Result{
		Strategy:   "SmaCross",
		Asset:      "GOOG",
		Objective:  "sharpe",
		Exhaustive: true,
		GridSize:   4,
		Best:       surface[1],
		Surface:    surface,
	}
}
