package journal

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/strategylab/backtest"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time

	Strategy  string
	Asset     string
	Params    []byte // JSON parameter set
	Optimized bool
	Objective string

	Start time.Time
	End   time.Time

	// Results
	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64
	Commission   float64

	NetPL        float64
	ReturnPct    float64
	BuyHoldPct   float64
	WinRate      float64 // percent
	ProfitFactor float64
	MaxDDPct     float64
	Sharpe       float64
	Sortino      float64
	SQN          float64

	Notes []string
}

// NewBacktestRun summarizes a run result for the journal.
func NewBacktestRun(runID string, res *backtest.Result) BacktestRun {
	params, _ := json.Marshal(res.Params)
	st := res.Stats
	run := BacktestRun{
		RunID:        runID,
		Created:      time.Now().UTC(),
		Strategy:     res.Strategy,
		Asset:        res.Asset,
		Params:       params,
		Start:        st.Start,
		End:          st.End,
		Trades:       st.Trades,
		StartBalance: res.Settings.Cash,
		EndBalance:   st.EquityFinal,
		Commission:   res.Settings.Commission,
		NetPL:        st.EquityFinal - res.Settings.Cash,
		ReturnPct:    st.ReturnPct,
		BuyHoldPct:   st.BuyHoldReturnPct,
		WinRate:      st.WinRatePct,
		ProfitFactor: st.ProfitFactor,
		MaxDDPct:     st.MaxDrawdownPct,
		Sharpe:       st.Sharpe,
		Sortino:      st.Sortino,
		SQN:          st.SQN,
	}
	for _, t := range res.Trades {
		if t.PnL > 0 {
			run.Wins++
		} else {
			run.Losses++
		}
	}
	return run
}

var backtestOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// Org renders the run as an org-mode entry.
func (v BacktestRun) Org() (string, error) {
	buf := new(bytes.Buffer)
	if err := v.WriteOrg(buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteOrg renders the run to w.
func (v BacktestRun) WriteOrg(w io.Writer) error {
	return backtestOrg.Execute(w, v)
}

// WriteOrgFile renders the run into path.
func (v BacktestRun) WriteOrgFile(path string) error {
	s, err := v.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

const BacktestOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Asset}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:ASSET:       {{.Asset}}
:OPTIMIZED:   {{if .Optimized}}{{.Objective}}{{else}}no{{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(no losses){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src json
{{printf "%s" .Params}}
#+end_src

| Setting      | Value |
|--------------+-------|
| Commission   | {{printf "%.4f" .Commission}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Buy & Hold:       *{{printf "%.2f" .BuyHoldPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Sharpe:           *{{printf "%.2f" .Sharpe}}*
- Sortino:          *{{printf "%.2f" .Sortino}}*
- SQN:              *{{printf "%.2f" .SQN}}*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*

** Equity Curve
[[file:equity_curve.json]]

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
