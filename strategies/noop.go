package strategies

import (
	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/market"
)

// NoopStrategy does nothing.
type NoopStrategy struct{}

func (NoopStrategy) Init(*market.Series) error { return nil }

func (NoopStrategy) Next(*backtest.Context) {}

func NoopSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "Noop",
		Description: "Never trades. Useful as a flat baseline.",
		New: func(backtest.ParamSet) (backtest.Strategy, error) {
			return NoopStrategy{}, nil
		},
	}
}
