package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/strategylab/market"
)

// Side: +1 long, -1 short
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "long":
		*s = Long
	case "short":
		*s = Short
	default:
		return fmt.Errorf("backtest: unknown side %q", b)
	}
	return nil
}

// DefaultSize is the equity fraction used when an order leaves Size at zero.
const DefaultSize = 0.9999

// Exit reasons recorded on trades.
const (
	ReasonStop        = "STOP"
	ReasonTake        = "TAKE"
	ReasonStopAndTake = "STOP&TAKE same bar (stop-first)"
	ReasonEnd         = "END"
)

type Config struct {
	Cash       float64 // starting cash
	Commission float64 // fraction of notional per fill

	// HoldToEnd leaves a position open after the final bar.
	HoldToEnd bool
}

type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryIndex int       `json:"entry_index"`
	ExitIndex  int       `json:"exit_index"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Commission float64   `json:"commission"`
	ExitReason string    `json:"exit_reason"`
}

type Position struct {
	Open       bool      `json:"open"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	EntryIndex int       `json:"entry_index"`
	StopLoss   float64   `json:"stop_loss,omitempty"`   // 0 means none
	TakeProfit float64   `json:"take_profit,omitempty"` // 0 means none
	Reason     string    `json:"reason,omitempty"`

	entryFee float64
}

// PnL is the unrealized profit of the position at price, before the exit
// commission.
func (p Position) PnL(price float64) float64 {
	return float64(p.Side)*(price-p.EntryPrice)*p.Size - p.entryFee
}

type EquityPoint struct {
	Time        time.Time `json:"time"`
	Equity      float64   `json:"equity"`
	DrawdownPct float64   `json:"drawdown_pct"`
}

// Engine runs one strategy over one series. It is not safe for concurrent
// use; create one engine per run.
type Engine struct {
	series *market.Series
	closes []float64
	cfg    Config

	cash        float64
	pos         Position
	trades      []Trade
	curve       []EquityPoint
	fills       int
	exposed     int
	commissions float64
}

func NewEngine(s *market.Series, cfg Config) *Engine {
	return &Engine{
		series: s,
		cfg:    cfg,
		cash:   cfg.Cash,
	}
}

// Run executes the strategy over every bar of the series:
//  1. stop-loss / take-profit against the bar's range
//  2. strategy.Next (skipped when 1 closed the position)
//  3. liquidation on the final bar unless HoldToEnd
//  4. equity = cash + open position marked at close
func (e *Engine) Run(strat Strategy) error {
	if e.series == nil || e.series.Len() == 0 {
		return fmt.Errorf("%w: empty series", market.ErrData)
	}
	if strat == nil {
		return fmt.Errorf("backtest: Strategy is required")
	}

	e.closes = e.series.Closes()
	e.curve = make([]EquityPoint, 0, e.series.Len())
	last := e.series.Len() - 1
	peak := e.cfg.Cash

	for i, b := range e.series.Bars {
		// 1) Manage open position exits first (stop/take on this bar)
		exited := false
		if e.pos.Open {
			if exitPx, reason, hit := checkExit(e.pos, b); hit {
				e.closePosition(i, exitPx, reason)
				exited = true
			}
		}

		// 2) Let strategy decide entries and exits
		if !exited {
			strat.Next(&Context{eng: e, idx: i})
		}

		// 3) Final bar liquidation
		if i == last && e.pos.Open && !e.cfg.HoldToEnd {
			e.closePosition(i, b.Close, ReasonEnd)
		}

		// 4) Mark to market
		if e.pos.Open {
			e.exposed++
		}
		eq := e.equity(b.Close)
		if eq > peak {
			peak = eq
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - eq) / peak * 100
		}
		e.curve = append(e.curve, EquityPoint{Time: b.Time, Equity: eq, DrawdownPct: dd})
	}

	return nil
}

// Trades returns the closed trades in exit order.
func (e *Engine) Trades() []Trade { return e.trades }

// Equity returns one point per processed bar.
func (e *Engine) Equity() []EquityPoint { return e.curve }

// Position returns the position left open after Run, if any.
func (e *Engine) Position() (Position, bool) { return e.pos, e.pos.Open }

// Cash is the current cash balance.
func (e *Engine) Cash() float64 { return e.cash }

func (e *Engine) equity(price float64) float64 {
	if !e.pos.Open {
		return e.cash
	}
	return e.cash + float64(e.pos.Side)*e.pos.Size*price
}

// units converts an order size into a whole number of units affordable at
// price, including the opening commission. Zero means no trade.
func (e *Engine) units(size, price float64) float64 {
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) || price <= 0 {
		return 0
	}

	equity := e.equity(price)
	perUnit := price * (1 + e.cfg.Commission)

	var u float64
	if size < 1 {
		u = math.Floor(size * equity / perUnit)
	} else {
		u = math.Floor(size)
	}
	if u <= 0 || math.IsNaN(u) || math.IsInf(u, 0) || u*perUnit > equity {
		return 0
	}
	return u
}

// validBrackets checks that the stop and target lie on the correct side of
// the entry price.
func validBrackets(side Side, price, stop, take float64) bool {
	for _, v := range []float64{stop, take} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	switch side {
	case Long:
		return (stop == 0 || stop < price) && (take == 0 || take > price)
	case Short:
		return (stop == 0 || stop > price) && (take == 0 || take < price)
	}
	return false
}

func (e *Engine) open(idx int, side Side, o Order) bool {
	// Only one position at a time
	if e.pos.Open {
		return false
	}

	// Simple fill model: enter at bar close
	b := e.series.Bars[idx]
	price := b.Close
	if !validBrackets(side, price, o.StopLoss, o.TakeProfit) {
		return false
	}
	u := e.units(o.Size, price)
	if u == 0 {
		return false
	}

	notional := u * price
	fee := e.cfg.Commission * notional
	if side == Long {
		e.cash -= notional + fee
	} else {
		e.cash += notional - fee
	}
	e.commissions += fee
	e.fills++

	e.pos = Position{
		Open:       true,
		Side:       side,
		Size:       u,
		EntryPrice: price,
		EntryTime:  b.Time,
		EntryIndex: idx,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Reason:     o.Reason,
		entryFee:   fee,
	}
	return true
}

func (e *Engine) closePosition(idx int, exit float64, reason string) {
	p := e.pos
	e.pos = Position{}

	notional := p.Size * exit
	fee := e.cfg.Commission * notional
	if p.Side == Long {
		e.cash += notional - fee
	} else {
		e.cash -= notional + fee
	}
	e.commissions += fee
	e.fills++

	// Long: (exit-entry) * units, Short: (entry-exit) * units
	pnl := float64(p.Side)*(exit-p.EntryPrice)*p.Size - p.entryFee - fee
	pct := 0.0
	if cost := p.EntryPrice * p.Size; cost > 0 {
		pct = pnl / cost * 100
	}

	e.trades = append(e.trades, Trade{
		EntryTime:  p.EntryTime,
		ExitTime:   e.series.Bars[idx].Time,
		EntryIndex: p.EntryIndex,
		ExitIndex:  idx,
		Side:       p.Side,
		Size:       p.Size,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exit,
		PnL:        pnl,
		PnLPct:     pct,
		Commission: p.entryFee + fee,
		ExitReason: reason,
	})
}

// checkExit models stop/take hits within a bar.
// If both stop and take are hit in the same bar, we assume the worst case
// for the trader: stop first.
func checkExit(p Position, b market.Bar) (exitPx float64, reason string, hit bool) {
	if !p.Open {
		return 0, "", false
	}

	hasStop := p.StopLoss != 0
	hasTake := p.TakeProfit != 0

	switch p.Side {
	case Long:
		stopHit := hasStop && b.Low <= p.StopLoss
		takeHit := hasTake && b.High >= p.TakeProfit

		if stopHit && takeHit {
			return p.StopLoss, ReasonStopAndTake, true
		}
		if stopHit {
			return p.StopLoss, ReasonStop, true
		}
		if takeHit {
			return p.TakeProfit, ReasonTake, true
		}
	case Short:
		stopHit := hasStop && b.High >= p.StopLoss
		takeHit := hasTake && b.Low <= p.TakeProfit

		if stopHit && takeHit {
			return p.StopLoss, ReasonStopAndTake, true
		}
		if stopHit {
			return p.StopLoss, ReasonStop, true
		}
		if takeHit {
			return p.TakeProfit, ReasonTake, true
		}
	}

	return 0, "", false
}
