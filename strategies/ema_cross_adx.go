package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
)

// EMACrossADX is an EMA crossover gated by trend strength: a cross is only
// traded once ADX is warmed up and at or above the threshold. With
// require_di set, the cross direction must also agree with +DI/-DI.
type EMACrossADX struct {
	FastPeriod   int
	SlowPeriod   int
	ADXPeriod    int
	ADXThreshold float64
	RequireDI    bool

	fast, slow []float64
	di         indicators.DirectionalIndex
}

func EmaCrossAdxSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "EmaCrossAdx",
		Description: "EMA cross traded only when ADX confirms a trend, optionally with DI direction confirmation.",
		Params: []backtest.Param{
			{Name: "fast_period", Default: 10, Kind: backtest.Int},
			{Name: "slow_period", Default: 30, Kind: backtest.Int},
			{Name: "adx_period", Default: 14, Kind: backtest.Int},
			{Name: "adx_threshold", Default: 20, Kind: backtest.Real, Bounds: &backtest.Bounds{Min: 0, Max: 60, Step: 5}},
			{Name: "require_di", Default: 0, Kind: backtest.Int, Bounds: &backtest.Bounds{Min: 0, Max: 1}},
		},
		Constraint: func(p backtest.ParamSet) bool { return p["fast_period"] < p["slow_period"] },
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &EMACrossADX{
				FastPeriod:   p.Int("fast_period"),
				SlowPeriod:   p.Int("slow_period"),
				ADXPeriod:    p.Int("adx_period"),
				ADXThreshold: p.Float("adx_threshold"),
				RequireDI:    p.Int("require_di") == 1,
			}
			for name, v := range map[string]int{"fast_period": s.FastPeriod, "slow_period": s.SlowPeriod, "adx_period": s.ADXPeriod} {
				if err := positive(name, v); err != nil {
					return nil, err
				}
			}
			if s.FastPeriod >= s.SlowPeriod {
				return nil, fmt.Errorf("%w: fast_period must be below slow_period", backtest.ErrConfig)
			}
			return s, nil
		},
	}
}

func (s *EMACrossADX) Init(series *market.Series) error {
	closes := series.Closes()
	var err error
	if s.fast, err = indicators.EMA(closes, s.FastPeriod); err != nil {
		return fmt.Errorf("fast ema: %w", err)
	}
	if s.slow, err = indicators.EMA(closes, s.SlowPeriod); err != nil {
		return fmt.Errorf("slow ema: %w", err)
	}
	if s.di, err = indicators.ADX(series.Highs(), series.Lows(), closes, s.ADXPeriod); err != nil {
		return fmt.Errorf("adx: %w", err)
	}
	return nil
}

func (s *EMACrossADX) Next(ctx *backtest.Context) {
	i := ctx.Index()

	dir := 0
	switch {
	case Crossover(s.fast, s.slow, i):
		dir = +1
	case Crossover(s.slow, s.fast, i):
		dir = -1
	default:
		return
	}

	// trend too weak or not measurable yet
	adx := s.di.ADX[i]
	if math.IsNaN(adx) || adx < s.ADXThreshold {
		return
	}
	if s.RequireDI {
		plus, minus := s.di.PlusDI[i], s.di.MinusDI[i]
		if (dir > 0 && !(plus > minus)) || (dir < 0 && !(minus > plus)) {
			return
		}
	}

	if pos, open := ctx.Position(); open {
		if int(pos.Side) == dir {
			return
		}
		ctx.ClosePosition("reverse")
	}

	if dir > 0 {
		ctx.Buy(backtest.Order{Reason: "EMA cross up + ADX gate"})
	} else {
		ctx.Sell(backtest.Order{Reason: "EMA cross down + ADX gate"})
	}
}
