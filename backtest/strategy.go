package backtest

import (
	"time"

	"github.com/rustyeddy/strategylab/market"
)

// Strategy is driven by the engine one bar at a time.
type Strategy interface {
	// Init is called once before the first bar. It may precompute causal
	// indicator columns from the full series.
	Init(s *market.Series) error

	// Next is called once per bar, in timestamp order, unless a stop-loss
	// or take-profit closed the position on that bar.
	Next(ctx *Context)
}

// Spec describes a strategy: its declared parameters and how to build an
// instance for a resolved parameter set.
type Spec struct {
	Name        string
	Description string
	Params      []Param

	// HoldToEnd exempts open positions from liquidation on the final bar.
	HoldToEnd bool

	// Constraint, when set, rejects parameter combinations the optimizer
	// should not evaluate, such as a fast period above the slow one.
	Constraint func(p ParamSet) bool

	New func(p ParamSet) (Strategy, error)
}

// Defaults returns the declared default values.
func (s Spec) Defaults() ParamSet {
	out := make(ParamSet, len(s.Params))
	for _, p := range s.Params {
		out[p.Name] = p.Default
	}
	return out
}

// Param looks up a declared parameter by name.
func (s Spec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Order is a strategy's request to open a position. Size in (0,1) is a
// fraction of equity, size >= 1 is a unit count, zero is DefaultSize.
// StopLoss and TakeProfit of zero mean none.
type Order struct {
	Size       float64
	StopLoss   float64
	TakeProfit float64
	Reason     string
}

// Context provides a strategy with the bars up to and including the
// current one, the live position and order entry.
type Context struct {
	eng *Engine
	idx int
}

// Index is the position of the current bar in the series.
func (c *Context) Index() int { return c.idx }

// Bar returns the current bar.
func (c *Context) Bar() market.Bar { return c.eng.series.Bars[c.idx] }

// Time returns the current bar's timestamp.
func (c *Context) Time() time.Time { return c.eng.series.Bars[c.idx].Time }

// Close returns the current bar's close.
func (c *Context) Close() float64 { return c.eng.series.Bars[c.idx].Close }

// Bars returns the bars seen so far.
func (c *Context) Bars() []market.Bar {
	return c.eng.series.Bars[: c.idx+1 : c.idx+1]
}

// Closes returns the close column up to the current bar.
func (c *Context) Closes() []float64 {
	return c.eng.closes[: c.idx+1 : c.idx+1]
}

// Feature returns a feature column up to the current bar.
func (c *Context) Feature(name string) ([]float64, bool) {
	col, ok := c.eng.series.Feature(name)
	if !ok {
		return nil, false
	}
	return col[: c.idx+1 : c.idx+1], true
}

// Position returns the open position, if any.
func (c *Context) Position() (Position, bool) {
	return c.eng.pos, c.eng.pos.Open
}

// Cash is the current cash balance.
func (c *Context) Cash() float64 { return c.eng.cash }

// Commission is the per-fill commission fraction.
func (c *Context) Commission() float64 { return c.eng.cfg.Commission }

// Equity is cash plus the open position marked at the current close.
func (c *Context) Equity() float64 { return c.eng.equity(c.Close()) }

// Buy opens a long position at the current close. It reports whether a
// position was opened.
func (c *Context) Buy(o Order) bool {
	return c.eng.open(c.idx, Long, o)
}

// Sell opens a short position at the current close.
func (c *Context) Sell(o Order) bool {
	return c.eng.open(c.idx, Short, o)
}

// ClosePosition closes the open position at the current close. It is a
// no-op when flat.
func (c *Context) ClosePosition(reason string) bool {
	if !c.eng.pos.Open {
		return false
	}
	if reason == "" {
		reason = "SIGNAL"
	}
	c.eng.closePosition(c.idx, c.Close(), reason)
	return true
}
