package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/market"
)

// Ichimoku trades Tenkan/Kijun crosses outside the cloud with an ATR
// volatility filter. The stop sits on the far cloud edge and the target at
// 1.5x the risk.
//
// The lagging span is confirmed by comparing the current close with the
// close kijun_period bars ago, which uses no future bars.
type Ichimoku struct {
	TenkanPeriod  int
	KijunPeriod   int
	SenkouBPeriod int
	ATRPeriod     int
	ATRThreshold  float64

	closes  []float64
	tenkan  []float64
	kijun   []float64
	senkouA []float64
	senkouB []float64
	atr     []float64
}

const ichimokuRewardRisk = 1.5

func IchimokuSpec() backtest.Spec {
	return backtest.Spec{
		Name:        "IchimokuStrategy",
		Description: "Tenkan/Kijun cross outside the Kumo with ATR filter; stop at cloud edge, 1.5R target.",
		Params: []backtest.Param{
			{Name: "tenkan_period", Default: 9, Kind: backtest.Int},
			{Name: "kijun_period", Default: 26, Kind: backtest.Int},
			{Name: "senkou_b_period", Default: 52, Kind: backtest.Int},
			{Name: "atr_period", Default: 14, Kind: backtest.Int},
			{Name: "atr_threshold", Default: 0.005, Kind: backtest.Real},
		},
		New: func(p backtest.ParamSet) (backtest.Strategy, error) {
			s := &Ichimoku{
				TenkanPeriod:  p.Int("tenkan_period"),
				KijunPeriod:   p.Int("kijun_period"),
				SenkouBPeriod: p.Int("senkou_b_period"),
				ATRPeriod:     p.Int("atr_period"),
				ATRThreshold:  p.Float("atr_threshold"),
			}
			periods := []struct {
				name string
				v    int
			}{
				{"tenkan_period", s.TenkanPeriod},
				{"kijun_period", s.KijunPeriod},
				{"senkou_b_period", s.SenkouBPeriod},
				{"atr_period", s.ATRPeriod},
			}
			for _, p := range periods {
				if err := positive(p.name, p.v); err != nil {
					return nil, err
				}
			}
			if s.ATRThreshold < 0 {
				return nil, fmt.Errorf("%w: atr_threshold must be >= 0, got %v", backtest.ErrConfig, s.ATRThreshold)
			}
			return s, nil
		},
	}
}

func (s *Ichimoku) Init(series *market.Series) error {
	high, low := series.Highs(), series.Lows()
	s.closes = series.Closes()

	var err error
	if s.tenkan, err = indicators.Midpoint(high, low, s.TenkanPeriod); err != nil {
		return fmt.Errorf("tenkan: %w", err)
	}
	if s.kijun, err = indicators.Midpoint(high, low, s.KijunPeriod); err != nil {
		return fmt.Errorf("kijun: %w", err)
	}
	if s.senkouB, err = indicators.Midpoint(high, low, s.SenkouBPeriod); err != nil {
		return fmt.Errorf("senkou b: %w", err)
	}
	s.senkouA = make([]float64, len(s.closes))
	for i := range s.closes {
		s.senkouA[i] = (s.tenkan[i] + s.kijun[i]) / 2
	}

	tr, err := indicators.TrueRange(high, low, s.closes)
	if err != nil {
		return err
	}
	if s.atr, err = indicators.SMA(tr, s.ATRPeriod); err != nil {
		return fmt.Errorf("atr: %w", err)
	}
	return nil
}

func (s *Ichimoku) Next(ctx *backtest.Context) {
	i := ctx.Index()
	shift := s.KijunPeriod
	if i < shift {
		return
	}

	price := s.closes[i]
	spanA, spanB := s.senkouA[i-shift], s.senkouB[i-shift]
	atr := s.atr[i]
	if math.IsNaN(spanA) || math.IsNaN(spanB) || math.IsNaN(atr) || price <= 0 {
		return
	}

	cloudTop := math.Max(spanA, spanB)
	cloudBottom := math.Min(spanA, spanB)
	inCloud := cloudBottom <= price && price <= cloudTop

	// volatility filter
	if atr/price < s.ATRThreshold {
		return
	}

	lagging := price - s.closes[i-shift]
	pos, open := ctx.Position()

	switch {
	case !open && price > cloudTop && Crossover(s.tenkan, s.kijun, i) && lagging > 0:
		risk := price - cloudBottom
		ctx.Buy(backtest.Order{
			StopLoss:   cloudBottom,
			TakeProfit: price + ichimokuRewardRisk*risk,
			Reason:     "tenkan/kijun bull cross above cloud",
		})
	case !open && price < cloudBottom && Crossover(s.kijun, s.tenkan, i) && lagging < 0:
		risk := cloudTop - price
		ctx.Sell(backtest.Order{
			StopLoss:   cloudTop,
			TakeProfit: price - ichimokuRewardRisk*risk,
			Reason:     "tenkan/kijun bear cross below cloud",
		})
	case open && pos.Side == backtest.Long && (inCloud || Crossover(s.kijun, s.tenkan, i)):
		ctx.ClosePosition("long exit")
	case open && pos.Side == backtest.Short && (inCloud || Crossover(s.tenkan, s.kijun, i)):
		ctx.ClosePosition("short exit")
	}
}
