package backtest

import (
	"math"
	"sort"
	"time"
)

// Stats summarizes one run. Percentages are in percent units. Every ratio
// that would be undefined (no variance, no drawdown, no trades) is 0.
type Stats struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`

	ExposurePct      float64 `json:"exposure_pct"`
	EquityFinal      float64 `json:"equity_final"`
	EquityPeak       float64 `json:"equity_peak"`
	ReturnPct        float64 `json:"return_pct"`
	BuyHoldReturnPct float64 `json:"buy_hold_return_pct"`
	ReturnAnnPct     float64 `json:"return_ann_pct"`
	VolatilityAnnPct float64 `json:"volatility_ann_pct"`

	Sharpe  float64 `json:"sharpe_ratio"`
	Sortino float64 `json:"sortino_ratio"`
	Calmar  float64 `json:"calmar_ratio"`

	MaxDrawdownPct      float64       `json:"max_drawdown_pct"`
	AvgDrawdownPct      float64       `json:"avg_drawdown_pct"`
	MaxDrawdownDuration time.Duration `json:"max_drawdown_duration"`

	Trades        int     `json:"trades"`
	WinRatePct    float64 `json:"win_rate_pct"`
	BestTradePct  float64 `json:"best_trade_pct"`
	WorstTradePct float64 `json:"worst_trade_pct"`
	AvgTradePct   float64 `json:"avg_trade_pct"`
	ProfitFactor  float64 `json:"profit_factor"`
	ExpectancyPct float64 `json:"expectancy_pct"`
	SQN           float64 `json:"sqn"`
	Commissions   float64 `json:"commissions"`
}

// PeriodsPerYear infers the annualization factor from the median spacing
// of the timestamps. Daily data without weekend bars gives 252.
func PeriodsPerYear(times []time.Time) float64 {
	if len(times) < 2 {
		return 252
	}
	gaps := make([]float64, 0, len(times)-1)
	weekend := false
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]).Seconds())
		if wd := times[i].Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend = true
		}
	}
	sort.Float64s(gaps)
	median := gaps[len(gaps)/2]
	if len(gaps)%2 == 0 {
		median = (gaps[len(gaps)/2-1] + gaps[len(gaps)/2]) / 2
	}
	if median <= 0 {
		return 252
	}

	day := (24 * time.Hour).Seconds()
	switch {
	case median >= 0.9*day && median <= 3.5*day:
		if weekend {
			return 365
		}
		return 252
	case median > 3.5*day && median <= 8*day:
		return 52
	case median > 8*day && median <= 35*day:
		return 12
	case median < 0.9*day:
		tradingDay := 252.0
		if weekend {
			tradingDay = 365
		}
		return tradingDay * day / median
	}
	return 365 * day / median
}

// ComputeStats derives run statistics from the trade ledger and equity
// curve. closes are the series closes, used for the buy and hold baseline.
// fills counts opening and closing fills; a run with none gets neutral
// ratios.
func ComputeStats(cash float64, trades []Trade, curve []EquityPoint, closes []float64, fills, exposed int, commissions float64) Stats {
	var st Stats
	st.EquityFinal = cash
	st.EquityPeak = cash
	if len(curve) == 0 {
		return st
	}

	st.Start = curve[0].Time
	st.End = curve[len(curve)-1].Time
	st.Duration = st.End.Sub(st.Start)
	if len(closes) > 0 && closes[0] > 0 {
		st.BuyHoldReturnPct = finite((closes[len(closes)-1]/closes[0] - 1) * 100)
	}
	if fills == 0 {
		return st
	}

	st.ExposurePct = float64(exposed) / float64(len(curve)) * 100
	st.EquityFinal = curve[len(curve)-1].Equity
	for _, p := range curve {
		st.EquityPeak = math.Max(st.EquityPeak, p.Equity)
	}
	st.ReturnPct = finite((st.EquityFinal/cash - 1) * 100)
	st.Commissions = commissions

	times := make([]time.Time, len(curve))
	for i, p := range curve {
		times[i] = p.Time
	}
	annual := PeriodsPerYear(times)

	returns := make([]float64, 0, len(curve))
	prev := cash
	for _, p := range curve {
		if prev > 0 {
			returns = append(returns, p.Equity/prev-1)
		}
		prev = p.Equity
	}

	n := len(curve) - 1
	growth := st.EquityFinal / cash
	if n > 0 && growth > 0 {
		st.ReturnAnnPct = finite((math.Pow(growth, annual/float64(n)) - 1) * 100)
	}

	mean, sd := meanStd(returns, 0)
	st.VolatilityAnnPct = finite(sd * math.Sqrt(annual) * 100)
	if sd > 0 {
		st.Sharpe = finite(mean / sd * math.Sqrt(annual))
	}
	if dd := downsideDev(returns); dd > 0 {
		st.Sortino = finite(mean / dd * math.Sqrt(annual))
	}

	maxDD, avgDD, maxDur := drawdowns(curve)
	st.MaxDrawdownPct = maxDD
	st.AvgDrawdownPct = avgDD
	st.MaxDrawdownDuration = maxDur
	if maxDD > 0 {
		st.Calmar = finite(st.ReturnAnnPct / maxDD)
	}

	tradeStats(&st, trades)
	return st
}

func tradeStats(st *Stats, trades []Trade) {
	st.Trades = len(trades)
	if len(trades) == 0 {
		return
	}

	pcts := make([]float64, len(trades))
	pnls := make([]float64, len(trades))
	wins := 0
	grossWin, grossLoss := 0.0, 0.0
	st.BestTradePct = math.Inf(-1)
	st.WorstTradePct = math.Inf(1)
	for i, t := range trades {
		pcts[i] = t.PnLPct
		pnls[i] = t.PnL
		if t.PnL > 0 {
			wins++
			grossWin += t.PnL
		} else {
			grossLoss -= t.PnL
		}
		st.BestTradePct = math.Max(st.BestTradePct, t.PnLPct)
		st.WorstTradePct = math.Min(st.WorstTradePct, t.PnLPct)
	}

	st.WinRatePct = float64(wins) / float64(len(trades)) * 100
	avg, _ := meanStd(pcts, 0)
	st.AvgTradePct = finite(avg)
	st.ExpectancyPct = st.AvgTradePct
	if grossLoss > 0 {
		st.ProfitFactor = finite(grossWin / grossLoss)
	}
	if mean, sd := meanStd(pnls, 1); sd > 0 {
		st.SQN = finite(math.Sqrt(float64(len(pnls))) * mean / sd)
	}
}

// drawdowns returns the max and average drawdown depth (percent) over
// distinct drawdown periods, and the longest time spent below a peak.
func drawdowns(curve []EquityPoint) (maxDD, avgDD float64, maxDur time.Duration) {
	var depths []float64
	inDD := false
	depth := 0.0
	var start time.Time

	for i, p := range curve {
		if p.DrawdownPct > 0 {
			if !inDD {
				inDD = true
				depth = 0
				start = curve[max(i-1, 0)].Time
			}
			depth = math.Max(depth, p.DrawdownPct)
			continue
		}
		if inDD {
			depths = append(depths, depth)
			if d := p.Time.Sub(start); d > maxDur {
				maxDur = d
			}
			inDD = false
		}
	}
	if inDD {
		depths = append(depths, depth)
		if d := curve[len(curve)-1].Time.Sub(start); d > maxDur {
			maxDur = d
		}
	}

	for _, d := range depths {
		maxDD = math.Max(maxDD, d)
		avgDD += d
	}
	if len(depths) > 0 {
		avgDD /= float64(len(depths))
	}
	return maxDD, avgDD, maxDur
}

// meanStd returns the mean and standard deviation with ddof degrees of
// freedom removed.
func meanStd(xs []float64, ddof int) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs)-ddof <= 0 {
		return mean, 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-ddof))
}

func downsideDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		if x < 0 {
			ss += x * x
		}
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
