package optimize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rustyeddy/strategylab/backtest"
)

// Objective turns run statistics into a score to maximize.
type Objective func(backtest.Stats) float64

var objectives = map[string]Objective{
	"sharpe":        func(s backtest.Stats) float64 { return s.Sharpe },
	"sortino":       func(s backtest.Stats) float64 { return s.Sortino },
	"calmar":        func(s backtest.Stats) float64 { return s.Calmar },
	"return":        func(s backtest.Stats) float64 { return s.ReturnPct },
	"equity_final":  func(s backtest.Stats) float64 { return s.EquityFinal },
	"win_rate":      func(s backtest.Stats) float64 { return s.WinRatePct },
	"profit_factor": func(s backtest.Stats) float64 { return s.ProfitFactor },
	"sqn":           func(s backtest.Stats) float64 { return s.SQN },
	// Negative because we minimize
	"max_drawdown": func(s backtest.Stats) float64 { return -s.MaxDrawdownPct },
	// 40% Sharpe, 30% win rate, 30% Calmar
	"balanced": func(s backtest.Stats) float64 {
		return 0.4*math.Max(0, s.Sharpe) + 0.3*s.WinRatePct/100 + 0.3*math.Max(0, s.Calmar)
	},
}

// report-style metric names accepted as aliases
var aliases = map[string]string{
	"sharperatio":    "sharpe",
	"sortinoratio":   "sortino",
	"calmarratio":    "calmar",
	"return%":        "return",
	"returnpct":      "return",
	"equityfinal$":   "equity_final",
	"equityfinal":    "equity_final",
	"winrate%":       "win_rate",
	"winrate":        "win_rate",
	"profitfactor":   "profit_factor",
	"maxdrawdown%":   "max_drawdown",
	"maxdrawdown":    "max_drawdown",
	"maxdrawdownpct": "max_drawdown",
	"systemquality":  "sqn",
}

// DefaultObjective is maximized when Options.Objective is empty.
const DefaultObjective = "sharpe"

// ObjectiveByName resolves an objective name or alias.
func ObjectiveByName(name string) (Objective, string, error) {
	if name == "" {
		name = DefaultObjective
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if obj, ok := objectives[key]; ok {
		return obj, key, nil
	}
	squashed := strings.NewReplacer(" ", "", "_", "", ".", "", "[", "", "]", "", "(", "", ")", "").Replace(key)
	if canon, ok := aliases[squashed]; ok {
		return objectives[canon], canon, nil
	}
	return nil, "", fmt.Errorf("%w: unknown objective %q (supported: %s)",
		backtest.ErrConfig, name, strings.Join(Objectives(), ", "))
}

// Objectives lists the canonical objective names.
func Objectives() []string {
	names := make([]string, 0, len(objectives))
	for k := range objectives {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
