// Package batch runs every configured strategy on every configured asset:
// load, add features, optimize or reuse cached parameters, run on the full
// series and persist the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/config"
	"github.com/rustyeddy/strategylab/indicators"
	"github.com/rustyeddy/strategylab/journal"
	"github.com/rustyeddy/strategylab/market"
	"github.com/rustyeddy/strategylab/market/data"
	"github.com/rustyeddy/strategylab/metrics"
	"github.com/rustyeddy/strategylab/optimize"
	"github.com/rustyeddy/strategylab/paramstore"
	"github.com/rustyeddy/strategylab/pkg/id"
	"github.com/rustyeddy/strategylab/strategies"
)

// Runner wires the collaborators of a batch. Journal may be nil.
type Runner struct {
	Config   *config.Config
	Registry *strategies.Registry
	Store    paramstore.Store
	Results  *journal.ResultsWriter
	Journal  journal.Journal

	// Load reads the configured data source; data.Load when nil.
	Load func(source string) (map[string]*market.Series, error)
}

// Outcome is the result of one (strategy, asset) pair.
type Outcome struct {
	Strategy  string            `json:"strategy"`
	Asset     string            `json:"asset"`
	RunID     string            `json:"run_id,omitempty"`
	Optimized bool              `json:"optimized"`
	Cached    bool              `json:"cached"`
	Params    backtest.ParamSet `json:"params,omitempty"`
	Stats     backtest.Stats    `json:"stats"`
	Dir       string            `json:"dir,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Report collects every outcome of a batch. Errors holds one message per
// failed pair or skipped asset.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Errors   []string  `json:"errors,omitempty"`
}

// ErrUnknownAsset is returned by Series when the data source has no bars
// for the requested asset.
var ErrUnknownAsset = errors.New("unknown asset")

func (r *Runner) load(source string) (map[string]*market.Series, error) {
	if r.Load != nil {
		return r.Load(source)
	}
	return data.Load(source)
}

// Series loads one asset from the configured data source and adds the
// standard features.
func (r *Runner) Series(asset string) (*market.Series, error) {
	source := r.Config.Backtest.DataSource
	var raw *market.Series
	if r.Load != nil {
		all, err := r.Load(source)
		if err != nil {
			return nil, err
		}
		s, ok := all[asset]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownAsset, asset, source)
		}
		raw = s
	} else {
		s, err := data.LoadAsset(source, asset)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnknownAsset, asset, err)
		}
		raw = s
	}
	return indicators.AddFeatures(raw)
}

// Run executes the batch. It returns an error only when nothing could be
// attempted (no data, cancelled context); per-pair failures are logged and
// collected in the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.Config
	all, err := r.load(cfg.Backtest.DataSource)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no data loaded from %s", market.ErrData, cfg.Backtest.DataSource)
	}

	assets := cfg.Assets
	if len(assets) == 0 {
		assets = data.Names(all)
	}

	rep := &Report{}
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		raw, ok := all[asset]
		if !ok {
			msg := fmt.Sprintf("data for asset %q not found, skipping", asset)
			log.Warn().Str("asset", asset).Msg("data for asset not found, skipping")
			rep.Errors = append(rep.Errors, msg)
			continue
		}

		series, err := indicators.AddFeatures(raw)
		if err != nil {
			r.fail(rep, "*", asset, err)
			continue
		}

		log.Info().Str("asset", asset).Int("bars", series.Len()).Msg("processing asset")
		for _, sc := range cfg.Strategies {
			out, err := r.RunOne(ctx, sc, series)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return rep, err
				}
				r.fail(rep, sc.Name, asset, err)
				continue
			}
			rep.Outcomes = append(rep.Outcomes, out)
		}
	}
	return rep, nil
}

func (r *Runner) fail(rep *Report, strategy, asset string, err error) {
	msg := fmt.Sprintf("error processing %s on %s: %v", strategy, asset, err)
	log.Error().Err(err).Str("strategy", strategy).Str("asset", asset).Msg("batch pair failed")
	metrics.BatchErrors.Inc()
	rep.Errors = append(rep.Errors, msg)
	rep.Outcomes = append(rep.Outcomes, Outcome{Strategy: strategy, Asset: asset, Error: err.Error()})
}

// RunOne processes one strategy on one featured series. Without Optimize,
// parameters cached for the pair override the configured ones.
func (r *Runner) RunOne(ctx context.Context, sc config.StrategyConfig, series *market.Series) (Outcome, error) {
	return r.run(ctx, sc, series, true)
}

// RunParams is RunOne without the cache lookup: sc.Params are used as
// given unless Optimize is set.
func (r *Runner) RunParams(ctx context.Context, sc config.StrategyConfig, series *market.Series) (Outcome, error) {
	return r.run(ctx, sc, series, false)
}

func (r *Runner) run(ctx context.Context, sc config.StrategyConfig, series *market.Series, useCache bool) (Outcome, error) {
	spec, err := r.Registry.Lookup(sc.Name)
	if err != nil {
		return Outcome{}, err
	}
	asset := series.Name
	out := Outcome{Strategy: spec.Name, Asset: asset}
	settings := r.Config.Settings(asset)

	params := sc.Params
	var opt *optimize.Result
	if sc.Optimize {
		opt, err = r.Optimize(ctx, spec, sc, series)
		if err != nil {
			return out, err
		}
		params = overlay(sc.Params, opt.Best.Params)
		out.Optimized = true
	} else if useCache {
		cached, err := r.Store.Get(spec.Name, asset)
		switch {
		case err == nil:
			log.Info().Str("strategy", spec.Name).Str("asset", asset).
				Str("params", cached.String()).Msg("using optimized parameters")
			params = overlay(sc.Params, cached)
			out.Cached = true
		case errors.Is(err, paramstore.ErrNotFound):
		default:
			return out, fmt.Errorf("read cached params: %w", err)
		}
		metrics.ObserveCacheLookup(out.Cached)
	}

	start := time.Now()
	res, err := backtest.Run(spec, series, settings, params)
	metrics.ObserveBacktest(spec.Name, time.Since(start), err)
	if err != nil {
		return out, err
	}
	if opt != nil {
		if err := r.Store.Set(spec.Name, asset, res.Params); err != nil {
			return out, fmt.Errorf("cache params: %w", err)
		}
	}

	runID := id.NewRun()
	run := journal.NewBacktestRun(runID, res)
	if opt != nil {
		run.Optimized = true
		run.Objective = opt.Objective
		run.Notes = append(run.Notes, fmt.Sprintf("optimized on the first %.0f%% of bars: %s = %.4f over %d candidates",
			r.Config.Backtest.OptimizeSplit*100, opt.Objective, opt.Best.Score, len(opt.Surface)))
	}
	if out.Cached {
		run.Notes = append(run.Notes, "parameters from the optimized-params cache")
	}

	dir, err := r.Results.Write(run, res, opt)
	if err != nil {
		return out, err
	}
	if r.Journal != nil {
		trades, equity := journal.Records(runID, res)
		if err := r.Journal.RecordBacktest(ctx, run, trades, equity); err != nil {
			return out, fmt.Errorf("journal: %w", err)
		}
	}

	out.RunID = runID
	out.Params = res.Params
	out.Stats = res.Stats
	out.Dir = dir

	log.Info().
		Str("strategy", spec.Name).
		Str("asset", asset).
		Str("run_id", runID).
		Int("trades", res.Stats.Trades).
		Float64("return_pct", res.Stats.ReturnPct).
		Float64("sharpe", res.Stats.Sharpe).
		Msg("backtest complete")
	return out, nil
}

// Optimize searches the strategy's domain on the optimization prefix of
// series.
func (r *Runner) Optimize(ctx context.Context, spec backtest.Spec, sc config.StrategyConfig, series *market.Series) (*optimize.Result, error) {
	d, err := Domain(spec, sc)
	if err != nil {
		return nil, err
	}

	prefix, err := series.Head(r.Config.Backtest.OptimizeSplit)
	if err != nil {
		return nil, err
	}

	oc := r.Config.Optimizer
	res, err := optimize.Optimize(ctx, spec, prefix, d, optimize.Options{
		Settings:        r.Config.Settings(series.Name),
		Base:            sc.Params,
		Objective:       oc.Metric,
		ExhaustiveLimit: oc.ExhaustiveLimit,
		MaxTries:        oc.MaxTries,
		Seed:            oc.Seed,
		Workers:         oc.Workers,
		OnEvaluate: func(ev optimize.Evaluation) {
			metrics.ObserveCandidate(spec.Name, ev.Err)
		},
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveOptimize(spec.Name, res.Duration)
	return res, nil
}

// Domain builds the search domain from the configured ranges. With no
// ranges every declared parameter is searched over its default range.
func Domain(spec backtest.Spec, sc config.StrategyConfig) (optimize.Domain, error) {
	if len(sc.ParamRanges) == 0 {
		return optimize.DomainFor(spec, nil, nil)
	}
	ranges := make(map[string][]float64, len(sc.ParamRanges))
	only := make([]string, 0, len(sc.ParamRanges))
	for name, pr := range sc.ParamRanges {
		p, ok := spec.Param(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown parameter %q in param_ranges", backtest.ErrConfig, spec.Name, name)
		}
		ranges[name] = pr.Expand(p.Kind)
		only = append(only, name)
	}
	return optimize.DomainFor(spec, ranges, only)
}

// overlay returns base with the values of top laid over it.
func overlay(base, top backtest.ParamSet) backtest.ParamSet {
	out := base.Clone()
	for k, v := range top {
		out[k] = v
	}
	return out
}
