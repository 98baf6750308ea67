package api

import (
	"encoding/json"
	"time"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/config"
	"github.com/rustyeddy/strategylab/journal"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParamInfo describes one declared strategy parameter.
type ParamInfo struct {
	Name    string           `json:"name"`
	Default float64          `json:"default"`
	Kind    string           `json:"kind"`
	Bounds  *backtest.Bounds `json:"bounds,omitempty"`
	Range   backtest.Bounds  `json:"search_range"`
}

// StrategyInfo is one entry of the strategy catalogue.
type StrategyInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	HoldToEnd   bool        `json:"hold_to_end"`
	Params      []ParamInfo `json:"params"`
}

func strategyInfo(spec backtest.Spec) StrategyInfo {
	info := StrategyInfo{
		Name:        spec.Name,
		Description: spec.Description,
		HoldToEnd:   spec.HoldToEnd,
		Params:      make([]ParamInfo, 0, len(spec.Params)),
	}
	for _, p := range spec.Params {
		info.Params = append(info.Params, ParamInfo{
			Name:    p.Name,
			Default: p.Default,
			Kind:    p.Kind.String(),
			Bounds:  p.Bounds,
			Range:   p.Range(),
		})
	}
	return info
}

// BacktestRequest is the body of POST /api/v1/backtest.
type BacktestRequest struct {
	Strategy    string                       `json:"strategy" binding:"required"`
	Asset       string                       `json:"asset" binding:"required"`
	Params      backtest.ParamSet            `json:"params,omitempty"`
	Optimize    bool                         `json:"optimize,omitempty"`
	ParamRanges map[string]config.ParamRange `json:"param_ranges,omitempty"`
}

// Run is a journaled run as served over HTTP.
type Run struct {
	RunID        string          `json:"run_id"`
	Created      time.Time       `json:"created"`
	Strategy     string          `json:"strategy"`
	Asset        string          `json:"asset"`
	Params       json.RawMessage `json:"params,omitempty"`
	Optimized    bool            `json:"optimized"`
	Objective    string          `json:"objective,omitempty"`
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	Trades       int             `json:"trades"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	StartBalance float64         `json:"start_balance"`
	EndBalance   float64         `json:"end_balance"`
	Commission   float64         `json:"commission"`
	NetPL        float64         `json:"net_pl"`
	ReturnPct    float64         `json:"return_pct"`
	BuyHoldPct   float64         `json:"buy_hold_return_pct"`
	WinRate      float64         `json:"win_rate_pct"`
	ProfitFactor float64         `json:"profit_factor"`
	MaxDDPct     float64         `json:"max_drawdown_pct"`
	Sharpe       float64         `json:"sharpe_ratio"`
	Sortino      float64         `json:"sortino_ratio"`
	SQN          float64         `json:"sqn"`
	Notes        []string        `json:"notes,omitempty"`
}

func runModel(r journal.BacktestRun) Run {
	var params json.RawMessage
	if json.Valid(r.Params) {
		params = r.Params
	}
	return Run{
		RunID:        r.RunID,
		Created:      r.Created,
		Strategy:     r.Strategy,
		Asset:        r.Asset,
		Params:       params,
		Optimized:    r.Optimized,
		Objective:    r.Objective,
		Start:        r.Start,
		End:          r.End,
		Trades:       r.Trades,
		Wins:         r.Wins,
		Losses:       r.Losses,
		StartBalance: r.StartBalance,
		EndBalance:   r.EndBalance,
		Commission:   r.Commission,
		NetPL:        r.NetPL,
		ReturnPct:    r.ReturnPct,
		BuyHoldPct:   r.BuyHoldPct,
		WinRate:      r.WinRate,
		ProfitFactor: r.ProfitFactor,
		MaxDDPct:     r.MaxDDPct,
		Sharpe:       r.Sharpe,
		Sortino:      r.Sortino,
		SQN:          r.SQN,
		Notes:        r.Notes,
	}
}

// Trade is a journaled trade as served over HTTP.
type Trade struct {
	Seq        int           `json:"seq"`
	Side       backtest.Side `json:"side"`
	Units      float64       `json:"units"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	OpenTime   time.Time     `json:"open_time"`
	CloseTime  time.Time     `json:"close_time"`
	RealizedPL float64       `json:"realized_pl"`
	PnLPct     float64       `json:"pnl_pct"`
	Commission float64       `json:"commission"`
	Reason     string        `json:"reason"`
}

func tradeModels(recs []journal.TradeRecord) []Trade {
	out := make([]Trade, len(recs))
	for i, t := range recs {
		out[i] = Trade{
			Seq:        t.Seq,
			Side:       t.Side,
			Units:      t.Units,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			OpenTime:   t.OpenTime,
			CloseTime:  t.CloseTime,
			RealizedPL: t.RealizedPL,
			PnLPct:     t.PnLPct,
			Commission: t.Commission,
			Reason:     t.Reason,
		}
	}
	return out
}

// RunDetail is a run with its trade ledger.
type RunDetail struct {
	Run
	TradeLedger []Trade `json:"trade_ledger"`
}
