package backtest

import (
	"fmt"
	"math"

	"github.com/rustyeddy/strategylab/market"
)

// Settings are the per-run account settings.
type Settings struct {
	Asset      string  `json:"asset" yaml:"asset"`
	Cash       float64 `json:"cash" yaml:"cash"`
	Commission float64 `json:"commission" yaml:"commission"` // fraction of notional, 0.002 = 0.2%
}

// Validate checks the settings for a run.
func (s Settings) Validate() error {
	if s.Cash <= 0 || math.IsNaN(s.Cash) || math.IsInf(s.Cash, 0) {
		return fmt.Errorf("%w: cash must be positive, got %v", ErrConfig, s.Cash)
	}
	if s.Commission < 0 || s.Commission >= 1 || math.IsNaN(s.Commission) {
		return fmt.Errorf("%w: commission must be in [0, 1), got %v", ErrConfig, s.Commission)
	}
	return nil
}

// Result is the outcome of one strategy run on one asset.
type Result struct {
	Strategy string        `json:"strategy"`
	Asset    string        `json:"asset"`
	Params   ParamSet      `json:"params"`
	Settings Settings      `json:"settings"`
	Trades   []Trade       `json:"trades"`
	Equity   []EquityPoint `json:"equity"`
	Stats    Stats         `json:"stats"`

	// Open is the position still held after the final bar (HoldToEnd only).
	Open *Position `json:"open,omitempty"`
}

// Run resolves params against the Spec declarations, builds the strategy and simulates
// it over the full series.
func Run(spec Spec, series *market.Series, settings Settings, params ParamSet) (*Result, error) {
	if spec.New == nil {
		return nil, fmt.Errorf("backtest: %s: strategy constructor is required", spec.Name)
	}
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: empty series", market.ErrData, settings.Asset)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Asset == "" {
		settings.Asset = series.Name
	}

	resolved, err := Resolve(spec.Params, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	strat, err := spec.New(resolved)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	if err := strat.Init(series); err != nil {
		return nil, fmt.Errorf("%s: init: %w", spec.Name, err)
	}

	eng := NewEngine(series, Config{
		Cash:       settings.Cash,
		Commission: settings.Commission,
		HoldToEnd:  spec.HoldToEnd,
	})
	if err := eng.Run(strat); err != nil {
		return nil, err
	}

	res := &Result{
		Strategy: spec.Name,
		Asset:    settings.Asset,
		Params:   resolved,
		Settings: settings,
		Trades:   eng.Trades(),
		Equity:   eng.Equity(),
		Stats: ComputeStats(settings.Cash, eng.Trades(), eng.Equity(), eng.closes,
			eng.fills, eng.exposed, eng.commissions),
	}
	if pos, ok := eng.Position(); ok {
		res.Open = &pos
	}
	if res.Trades == nil {
		res.Trades = []Trade{}
	}
	return res, nil
}
