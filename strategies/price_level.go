package strategies

import (
	"fmt"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
)

// PriceLevel is a mean-reversion strategy on the recent trading range.
// Levels 0/25/75/100 are placed on the rolling min/max of the close. A
// close dropping through the lower levels buys, dropping through the upper
// levels sells short; positions close on the opposite move.
type PriceLevel struct {
	Lookback int

	level0, level25, level75, level100 []float64
	closes                             []float64
}

func PriceLevelSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "PriceLevelStrategy",
		Description: "Trades dips and rallies relative to 25%/75% levels of the lookback range.",
		Params: []backtest.Param{
			{Name: "lookback_period", Default: 7, Kind: backtest.Int},
		},
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &PriceLevel{Lookback: p.Int("lookback_period")}
			if err := positive("lookback_period", s.Lookback); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

func (s *PriceLevel) Init(series *market.Series) error {
	s.closes = series.Closes()
	lo, err := indicators.RollingMin(s.closes, s.Lookback, 1)
	if err != nil {
		return fmt.Errorf("rolling min: %w", err)
	}
	hi, err := indicators.RollingMax(s.closes, s.Lookback, 1)
	if err != nil {
		return fmt.Errorf("rolling max: %w", err)
	}

	n := len(s.closes)
	s.level0, s.level100 = lo, hi
	s.level25 = make([]float64, n)
	s.level75 = make([]float64, n)
	for i := range s.closes {
		rng := hi[i] - lo[i]
		s.level25[i] = lo[i] + rng*0.25
		s.level75[i] = lo[i] + rng*0.75
	}
	return nil
}

func (s *PriceLevel) Next(ctx *backtest.Context) {
	i := ctx.Index()
	c := s.closes

	pos, open := ctx.Position()
	if !open {
		switch {
		case Crossover(s.level25, c, i) || Crossover(s.level0, c, i):
			ctx.Buy(backtest.Order{Reason: "below 25% level"})
		case Crossover(s.level75, c, i) || Crossover(s.level100, c, i):
			ctx.Sell(backtest.Order{Reason: "below 75% level"})
		}
		return
	}

	switch {
	case pos.Side == backtest.Long && (Crossover(c, s.level75, i) || Crossover(s.level100, c, i)):
		ctx.ClosePosition("above 75% level")
	case pos.Side == backtest.Short && (Crossover(c, s.level25, i) || Crossover(s.level0, c, i)):
		ctx.ClosePosition("above 25% level")
	}
}
