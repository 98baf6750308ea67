// Package journal persists backtest results: the per-run dashboard
// documents under the results directory and a SQLite run journal.
package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/strategylab/backtest"
)

// TradeRecord is one closed trade of a journaled run.
type TradeRecord struct {
	RunID      string
	Seq        int
	Strategy   string
	Asset      string
	Side       backtest.Side
	Units      float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	PnLPct     float64
	Commission float64
	Reason     string
}

// EquitySnapshot is one equity curve point of a journaled run.
type EquitySnapshot struct {
	RunID       string
	Time        time.Time
	Equity      float64
	DrawdownPct float64
}

// Journal records finished runs.
type Journal interface {
	RecordBacktest(ctx context.Context, run BacktestRun, trades []TradeRecord, equity []EquitySnapshot) error
	Close() error
}

// Records converts a run result into journal rows for runID.
func Records(runID string, res *backtest.Result) ([]TradeRecord, []EquitySnapshot) {
	trades := make([]TradeRecord, len(res.Trades))
	for i, t := range res.Trades {
		trades[i] = TradeRecord{
			RunID:      runID,
			Seq:        i + 1,
			Strategy:   res.Strategy,
			Asset:      res.Asset,
			Side:       t.Side,
			Units:      t.Size,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			OpenTime:   t.EntryTime,
			CloseTime:  t.ExitTime,
			RealizedPL: t.PnL,
			PnLPct:     t.PnLPct,
			Commission: t.Commission,
			Reason:     t.ExitReason,
		}
	}

	equity := make([]EquitySnapshot, len(res.Equity))
	for i, p := range res.Equity {
		equity[i] = EquitySnapshot{
			RunID:       runID,
			Time:        p.Time,
			Equity:      p.Equity,
			DrawdownPct: p.DrawdownPct,
		}
	}
	return trades, equity
}
