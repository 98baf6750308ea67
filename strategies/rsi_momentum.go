package strategies

import (
	"fmt"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
)

// RsiMomentum buys when RSI drops below the lower bound (oversold) and
// closes when it rises above the upper bound (overbought).
type RsiMomentum struct {
	Upper, Lower float64
	Period       int

	rsi []float64
}

func RsiMomentumSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "RsiMomentum",
		Description: "Long when RSI crosses below lower_bound, flat when it crosses above upper_bound.",
		Params: []backtest.Param{
			{Name: "upper_bound", Default: 70, Kind: backtest.Int, Bounds: &backtest.Bounds{Min: 0, Max: 100, Step: 5}},
			{Name: "lower_bound", Default: 30, Kind: backtest.Int, Bounds: &backtest.Bounds{Min: 0, Max: 100, Step: 5}},
			{Name: "rsi_period", Default: 14, Kind: backtest.Int},
		},
		Constraint: func(p backtest.ParamSet) bool { return p["lower_bound"] < p["upper_bound"] },
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &RsiMomentum{
				Upper:  p.Float("upper_bound"),
				Lower:  p.Float("lower_bound"),
				Period: p.Int("rsi_period"),
			}
			if err := positive("rsi_period", s.Period); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

func (s *RsiMomentum) Init(series *market.Series) error {
	var err error
	if s.rsi, err = indicators.RSI(series.Closes(), s.Period); err != nil {
		return fmt.Errorf("rsi: %w", err)
	}
	return nil
}

func (s *RsiMomentum) Next(ctx *backtest.Context) {
	i := ctx.Index()
	switch {
	case CrossBelow(s.rsi, s.Lower, i):
		ctx.Buy(backtest.Order{Reason: "rsi oversold"})
	case CrossAbove(s.rsi, s.Upper, i):
		ctx.ClosePosition("rsi overbought")
	}
}
