package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found")

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

// RecordBacktest stores the run, its trades and its equity curve in one
// transaction.
func (j *SQLiteJournal) RecordBacktest(ctx context.Context, btr BacktestRun, trades []TradeRecord, equity []EquitySnapshot) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, created, strategy, asset, params, optimized, objective, start_time, end_time,
		 trades, wins, losses, start_balance, end_balance, commission, net_pl, return_pct,
		 buy_hold_pct, win_rate, profit_factor, max_dd_pct, sharpe, sortino, sqn, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		btr.RunID, btr.Created, btr.Strategy, btr.Asset, string(btr.Params), btr.Optimized, btr.Objective,
		btr.Start, btr.End, btr.Trades, btr.Wins, btr.Losses, btr.StartBalance, btr.EndBalance,
		btr.Commission, btr.NetPL, btr.ReturnPct, btr.BuyHoldPct, btr.WinRate, btr.ProfitFactor,
		btr.MaxDDPct, btr.Sharpe, btr.Sortino, btr.SQN, strings.Join(btr.Notes, "\n"),
	)
	if err != nil {
		return fmt.Errorf("journal: insert run %s: %w", btr.RunID, err)
	}

	tstmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(run_id, seq, strategy, asset, side, units, entry_price, exit_price, open_time, close_time,
		 realized_pl, pnl_pct, commission, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tstmt.Close()
	for _, t := range trades {
		_, err := tstmt.ExecContext(ctx,
			btr.RunID, t.Seq, t.Strategy, t.Asset, t.Side.String(), t.Units, t.EntryPrice,
			t.ExitPrice, t.OpenTime, t.CloseTime, t.RealizedPL, t.PnLPct, t.Commission, t.Reason,
		)
		if err != nil {
			return fmt.Errorf("journal: insert trade %d: %w", t.Seq, err)
		}
	}

	estmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity (run_id, time, equity, drawdown_pct) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer estmt.Close()
	for _, e := range equity {
		if _, err := estmt.ExecContext(ctx, btr.RunID, e.Time, e.Equity, e.DrawdownPct); err != nil {
			return fmt.Errorf("journal: insert equity: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, created, strategy, asset, params, optimized, objective, start_time, end_time,
	trades, wins, losses, start_balance, end_balance, commission, net_pl, return_pct,
	buy_hold_pct, win_rate, profit_factor, max_dd_pct, sharpe, sortino, sqn, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (BacktestRun, error) {
	var (
		btr    BacktestRun
		params string
		notes  string
	)
	err := row.Scan(
		&btr.RunID, &btr.Created, &btr.Strategy, &btr.Asset, &params, &btr.Optimized, &btr.Objective,
		&btr.Start, &btr.End, &btr.Trades, &btr.Wins, &btr.Losses, &btr.StartBalance, &btr.EndBalance,
		&btr.Commission, &btr.NetPL, &btr.ReturnPct, &btr.BuyHoldPct, &btr.WinRate, &btr.ProfitFactor,
		&btr.MaxDDPct, &btr.Sharpe, &btr.Sortino, &btr.SQN, &notes,
	)
	if err != nil {
		return BacktestRun{}, err
	}
	btr.Params = []byte(params)
	if notes != "" {
		btr.Notes = strings.Split(notes, "\n")
	}
	return btr, nil
}

func (j *SQLiteJournal) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE run_id = ?`, runID)
	btr, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return btr, err
}

const tradeColumns = `run_id, seq, strategy, asset, side, units, entry_price, exit_price, open_time,
	close_time, realized_pl, pnl_pct, commission, reason`

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			rec  TradeRecord
			side string
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.Seq,
			&rec.Strategy,
			&rec.Asset,
			&side,
			&rec.Units,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.RealizedPL,
			&rec.PnLPct,
			&rec.Commission,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		if err := rec.Side.UnmarshalText([]byte(side)); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLiteJournal) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

func (j *SQLiteJournal) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, equity, drawdown_pct
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity, &e.DrawdownPct); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportBacktestOrg loads the run with its trades and returns the org
// entry followed by one org entry per trade.
func (j *SQLiteJournal) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	btr, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := btr.WriteOrg(&sb); err != nil {
		return "", err
	}
	if len(trades) > 0 {
		sb.WriteString("\n")
		sb.WriteString(FormatTradesOrg(trades))
	}
	return sb.String(), nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
