package strategies

import (
	"fmt"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
)

// SmaCross buys when the short SMA crosses above the long SMA and closes
// when it crosses back below.
type SmaCross struct {
	N1, N2 int

	sma1, sma2 []float64
}

func SmaCrossSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "SmaCross",
		Description: "Long on short/long SMA golden cross, flat on death cross.",
		Params: []backtest.Param{
			{Name: "n1", Default: 10, Kind: backtest.Int},
			{Name: "n2", Default: 20, Kind: backtest.Int},
		},
		Constraint: func(p backtest.ParamSet) bool { return p["n1"] < p["n2"] },
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &SmaCross{N1: p.Int("n1"), N2: p.Int("n2")}
			if err := positive("n1", s.N1); err != nil {
				return nil, err
			}
			if err := positive("n2", s.N2); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

func (s *SmaCross) Init(series *market.Series) error {
	closes := series.Closes()
	var err error
	if s.sma1, err = indicators.SMA(closes, s.N1); err != nil {
		return fmt.Errorf("sma1: %w", err)
	}
	if s.sma2, err = indicators.SMA(closes, s.N2); err != nil {
		return fmt.Errorf("sma2: %w", err)
	}
	return nil
}

func (s *SmaCross) Next(ctx *backtest.Context) {
	i := ctx.Index()
	switch {
	case Crossover(s.sma1, s.sma2, i):
		ctx.Buy(backtest.Order{Reason: "golden cross"})
	case Crossover(s.sma2, s.sma1, i):
		ctx.ClosePosition("death cross")
	}
}
