package journal

import (
	"context"
	"time"
)

// RunFilter narrows ListRuns. Empty fields match everything.
type RunFilter struct {
	Strategy string
	Asset    string
	Limit    int
}

// ListRuns returns journaled runs, newest first.
func (j *SQLiteJournal) ListRuns(ctx context.Context, f RunFilter) ([]BacktestRun, error) {
	q := `SELECT ` + runColumns + ` FROM backtest_runs WHERE 1 = 1`
	var args []any
	if f.Strategy != "" {
		q += ` AND strategy = ?`
		args = append(args, f.Strategy)
	}
	if f.Asset != "" {
		q += ` AND asset = ?`
		args = append(args, f.Asset)
	}
	q += ` ORDER BY created DESC, run_id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		btr, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, btr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesClosedBetween returns trades of all runs whose close_time is
// within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, run_id ASC, seq ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// TradeTotals aggregates the realized P/L of a run's trades.
type TradeTotals struct {
	GrossProfit  float64
	GrossLoss    float64 // positive
	ProfitFactor float64 // 0 without losses
}

func (j *SQLiteJournal) TradeTotals(ctx context.Context, runID string) (TradeTotals, error) {
	var t TradeTotals
	err := j.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN realized_pl > 0 THEN realized_pl ELSE 0 END), 0),
			COALESCE(-SUM(CASE WHEN realized_pl < 0 THEN realized_pl ELSE 0 END), 0)
		FROM trades
		WHERE run_id = ?`, runID).Scan(&t.GrossProfit, &t.GrossLoss)
	if err != nil {
		return TradeTotals{}, err
	}
	if t.GrossLoss > 0 {
		t.ProfitFactor = t.GrossProfit / t.GrossLoss
	}
	return t, nil
}
