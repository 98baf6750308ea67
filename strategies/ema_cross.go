package strategies

import (
	"fmt"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
	"github.com/rustyeddy/strategylab/risk"
)

// EMACross trades a fast/slow EMA crossover.
// - Enters only on cross
// - Reverses on opposite cross (close then open)
// - Sizes with risk.Calculate against a fixed percentage stop
type EMACross struct {
	FastPeriod int
	SlowPeriod int
	RiskPct    float64 // 0.01 (1%)
	StopPct    float64 // stop distance as a fraction of entry, e.g. 0.02
	RR         float64 // take-profit multiple of risk, e.g. 2.0

	fast, slow []float64
}

func EmaCrossSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "EmaCross",
		Description: "Fast/slow EMA cross with reversal, risk-based sizing and a fixed R multiple target.",
		Params: []backtest.Param{
			{Name: "fast_period", Default: 10, Kind: backtest.Int},
			{Name: "slow_period", Default: 30, Kind: backtest.Int},
			{Name: "risk_pct", Default: 0.01, Kind: backtest.Real, Bounds: &backtest.Bounds{Min: 0.001, Max: 0.1, Step: 0.005}},
			{Name: "stop_pct", Default: 0.02, Kind: backtest.Real},
			{Name: "rr", Default: 2.0, Kind: backtest.Real},
		},
		Constraint: func(p backtest.ParamSet) bool { return p["fast_period"] < p["slow_period"] },
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &EMACross{
				FastPeriod: p.Int("fast_period"),
				SlowPeriod: p.Int("slow_period"),
				RiskPct:    p.Float("risk_pct"),
				StopPct:    p.Float("stop_pct"),
				RR:         p.Float("rr"),
			}
			if err := positive("fast_period", s.FastPeriod); err != nil {
				return nil, err
			}
			if err := positive("slow_period", s.SlowPeriod); err != nil {
				return nil, err
			}
			if s.StopPct <= 0 || s.StopPct >= 1 || s.RR <= 0 {
				return nil, fmt.Errorf("%w: stop_pct must be in (0,1) and rr > 0", backtest.ErrConfig)
			}
			return s, nil
		},
	}
}

func (s *EMACross) Init(series *market.Series) error {
	closes := series.Closes()
	var err error
	if s.fast, err = indicators.EMA(closes, s.FastPeriod); err != nil {
		return fmt.Errorf("fast ema: %w", err)
	}
	if s.slow, err = indicators.EMA(closes, s.SlowPeriod); err != nil {
		return fmt.Errorf("slow ema: %w", err)
	}
	return nil
}

func (s *EMACross) Next(ctx *backtest.Context) {
	i := ctx.Index()

	// Cross logic:
	// - Bull cross: fast goes from <= slow to > slow
	// - Bear cross: fast goes from >= slow to < slow
	dir := 0
	switch {
	case Crossover(s.fast, s.slow, i):
		dir = +1
	case Crossover(s.slow, s.fast, i):
		dir = -1
	default:
		return
	}

	// If we already have a position in the same direction, do nothing.
	if pos, open := ctx.Position(); open {
		if int(pos.Side) == dir {
			return
		}
		ctx.ClosePosition("reverse")
	}

	entry := ctx.Close()
	stop, take := risk.Bracket(entry, s.StopPct, s.RR, dir)
	size := risk.Calculate(risk.Inputs{
		Equity:     ctx.Equity(),
		RiskPct:    s.RiskPct,
		EntryPrice: entry,
		StopPrice:  stop,
	})
	units := risk.Affordable(size.Units, ctx.Equity(), entry, ctx.Commission())
	if units < 1 {
		return
	}

	o := backtest.Order{Size: units, StopLoss: stop, TakeProfit: take}
	if dir > 0 {
		o.Reason = "BullCross"
		ctx.Buy(o)
	} else {
		o.Reason = "BearCross"
		ctx.Sell(o)
	}
}
