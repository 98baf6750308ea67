package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
)

// FVG trades pullbacks into fair value gaps.
//
// A bullish gap forms when the high two bars back is below the current low;
// a bearish gap when the low two bars back is above the current high. Gaps
// stay active for fvg_expiry bars, are dropped once price trades through
// them and are used for at most one trade. Stop and target are ATR
// multiples from the entry close.
type FVG struct {
	ATRPeriod    int
	SLMultiplier float64
	TPMultiplier float64
	Expiry       int

	atr    []float64
	active []gap
}

type gap struct {
	bullish   bool
	top       float64
	bottom    float64
	createdAt int
	used      bool
}

func FVGSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "FVGStrategy",
		Description: "Enter on pullbacks into fresh fair value gaps with ATR-multiple stop and target.",
		Params: []backtest.Param{
			{Name: "atr_period", Default: 14, Kind: backtest.Int},
			{Name: "sl_atr_multiplier", Default: 2.0, Kind: backtest.Real},
			{Name: "tp_atr_multiplier", Default: 4.0, Kind: backtest.Real},
			{Name: "fvg_expiry", Default: 15, Kind: backtest.Int},
		},
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &FVG{
				ATRPeriod:    p.Int("atr_period"),
				SLMultiplier: p.Float("sl_atr_multiplier"),
				TPMultiplier: p.Float("tp_atr_multiplier"),
				Expiry:       p.Int("fvg_expiry"),
			}
			if err := positive("atr_period", s.ATRPeriod); err != nil {
				return nil, err
			}
			if s.Expiry < 0 {
				return nil, fmt.Errorf("%w: fvg_expiry must be >= 0, got %d", backtest.ErrConfig, s.Expiry)
			}
			if s.SLMultiplier <= 0 || s.TPMultiplier <= 0 {
				return nil, fmt.Errorf("%w: ATR multipliers must be positive", backtest.ErrConfig)
			}
			return s, nil
		},
	}
}

func (s *FVG) Init(series *market.Series) error {
	var err error
	s.atr, err = indicators.ATR(series.Highs(), series.Lows(), series.Closes(), s.ATRPeriod)
	if err != nil {
		return fmt.Errorf("atr: %w", err)
	}
	s.active = nil
	return nil
}

func (s *FVG) Next(ctx *backtest.Context) {
	i := ctx.Index()
	if i+1 < s.ATRPeriod || math.IsNaN(s.atr[i]) {
		return
	}
	bars := ctx.Bars()
	cur := bars[i]

	// 1) drop used, expired and invalidated gaps
	keep := s.active[:0]
	for _, g := range s.active {
		expired := i > g.createdAt+s.Expiry
		invalid := (g.bullish && cur.Low < g.bottom) || (!g.bullish && cur.High > g.top)
		if !g.used && !expired && !invalid {
			keep = append(keep, g)
		}
	}
	s.active = keep

	// 2) detect new gaps
	if i < 2 {
		return
	}
	first := bars[i-2]
	if first.High < cur.Low && !s.sameAsLast(true, first.High) {
		s.active = append(s.active, gap{bullish: true, top: cur.Low, bottom: first.High, createdAt: i})
	}
	if first.Low > cur.High && !s.sameAsLast(false, first.Low) {
		s.active = append(s.active, gap{bullish: false, top: first.Low, bottom: cur.High, createdAt: i})
	}

	// 3) entries
	if _, open := ctx.Position(); open || i < 3 {
		return
	}
	prev := bars[i-1]
	atr := s.atr[i]
	for k := range s.active {
		g := &s.active[k]
		if g.used {
			continue
		}
		if g.bullish && prev.Low > g.top && cur.Low <= g.top {
			ctx.Buy(backtest.Order{
				StopLoss:   cur.Close - atr*s.SLMultiplier,
				TakeProfit: cur.Close + atr*s.TPMultiplier,
				Reason:     "bullish fvg pullback",
			})
			g.used = true
			return
		}
		if !g.bullish && prev.High < g.bottom && cur.High >= g.bottom {
			ctx.Sell(backtest.Order{
				StopLoss:   cur.Close + atr*s.SLMultiplier,
				TakeProfit: cur.Close - atr*s.TPMultiplier,
				Reason:     "bearish fvg pullback",
			})
			g.used = true
			return
		}
	}
}

// sameAsLast reports whether the newest active gap is of the same kind and
// shares the anchoring edge, so overlapping gaps are not stacked.
func (s *FVG) sameAsLast(bullish bool, edge float64) bool {
	if len(s.active) == 0 {
		return false
	}
	last := s.active[len(s.active)-1]
	if last.bullish != bullish {
		return false
	}
	if bullish {
		return math.Abs(last.bottom-edge) < 1e-9
	}
	return math.Abs(last.top-edge) < 1e-9
}
