package strategies

import (
	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/market"
)

// BuyAndHold buys on the first bar and never sells. It is the benchmark
// every other strategy is compared against.
type BuyAndHold struct{}

func BuyAndHoldSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "BuyAndHold",
		Description: "Buy on the first bar and hold to the end (benchmark).",
		HoldToEnd:   true,
		New: func(backtest.ParamSet) (backtest.Strategy, error) {
			return BuyAndHold{}, nil
		},
	}
}

func (BuyAndHold) Init(*market.Series) error { return nil }

func (BuyAndHold) Next(ctx *backtest.Context) {
	if ctx.Index() == 0 {
		ctx.Buy(backtest.Order{Reason: "hold"})
	}
}
