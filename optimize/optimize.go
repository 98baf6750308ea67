package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/market"
)

// ErrNoCandidates is returned when the domain is empty or no candidate
// could be evaluated.
var ErrNoCandidates = errors.New("no optimization candidates")

const (
	DefaultExhaustiveLimit = 1000
	DefaultMaxTries        = 1000
)

// Options controls a search.
type Options struct {
	Settings backtest.Settings

	// Base supplies values for parameters outside the domain. Declared
	// defaults fill whatever Base leaves unset.
	Base backtest.ParamSet

	// Objective names the metric to maximize; empty means Sharpe.
	Objective string

	// Grids up to ExhaustiveLimit points are searched exhaustively;
	// larger grids are sampled MaxTries times with Seed.
	ExhaustiveLimit int64
	MaxTries        int64
	Seed            int64

	// Workers bounds parallel engine runs; <= 0 means GOMAXPROCS.
	Workers int

	// Constraint, when set, skips candidates it rejects. It defaults to
	// the strategy's own Constraint.
	Constraint func(backtest.ParamSet) bool

	// OnEvaluate is called after each candidate, from worker goroutines.
	OnEvaluate func(Evaluation)
}

// Evaluation is one scored candidate. Params holds the domain values only.
type Evaluation struct {
	Index  int64             `json:"index"`
	Params backtest.ParamSet `json:"params"`
	Score  float64           `json:"score"`
	Stats  backtest.Stats    `json:"stats"`
	Err    error             `json:"-"`
	Error  string            `json:"error,omitempty"`
}

// Result is the outcome of a search.
type Result struct {
	Strategy   string        `json:"strategy"`
	Asset      string        `json:"asset"`
	Objective  string        `json:"objective"`
	Exhaustive bool          `json:"exhaustive"`
	GridSize   int64         `json:"grid_size"`
	Best       Evaluation    `json:"best"`
	Surface    []Evaluation  `json:"surface"` // scored candidates by grid index
	Failed     []Evaluation  `json:"failed,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Candidates returns the grid indices the options would evaluate, in
// ascending order.
func Candidates(d Domain, opts Options) (indices []int64, exhaustive bool) {
	size := d.Size()
	limit := opts.ExhaustiveLimit
	if limit <= 0 {
		limit = DefaultExhaustiveLimit
	}
	if size <= limit {
		return sample(size, size, 0), true
	}
	tries := opts.MaxTries
	if tries <= 0 {
		tries = DefaultMaxTries
	}
	return sample(size, tries, opts.Seed), false
}

// Optimize evaluates candidates from the domain on series and returns the
// best by objective. Ties go to the lowest grid index. Candidates run in
// parallel but results are placed by index, so the outcome does not depend
// on completion order.
func Optimize(ctx context.Context, spec backtest.Spec, series *market.Series, d Domain, opts Options) (*Result, error) {
	start := time.Now()

	objective, objName, err := ObjectiveByName(opts.Objective)
	if err != nil {
		return nil, err
	}
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("%w: empty series", market.ErrData)
	}
	if d.Size() == 0 {
		return nil, fmt.Errorf("%w: %s: empty domain", ErrNoCandidates, spec.Name)
	}
	if err := d.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	indices, exhaustive := Candidates(d, opts)

	constraint := opts.Constraint
	if constraint == nil {
		constraint = spec.Constraint
	}

	candidates := make([]backtest.ParamSet, 0, len(indices))
	keep := make([]int64, 0, len(indices))
	for _, idx := range indices {
		ps := d.At(idx)
		if constraint != nil && !constraint(merge(spec.Defaults(), opts.Base, ps)) {
			continue
		}
		candidates = append(candidates, ps)
		keep = append(keep, idx)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s: every candidate rejected by constraint", ErrNoCandidates, spec.Name)
	}

	log.Info().
		Str("strategy", spec.Name).
		Str("asset", series.Name).
		Int64("grid", d.Size()).
		Int("candidates", len(candidates)).
		Bool("exhaustive", exhaustive).
		Str("objective", objName).
		Msg("optimizing")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	settings := opts.Settings
	if settings.Asset == "" {
		settings.Asset = series.Name
	}

	evals := make([]Evaluation, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev := Evaluation{Index: keep[i], Params: candidates[i]}
			res, err := backtest.Run(spec, series, settings, merge(nil, opts.Base, candidates[i]))
			if err != nil {
				ev.Err = err
				ev.Error = err.Error()
			} else {
				ev.Stats = res.Stats
				ev.Score = objective(res.Stats)
			}
			evals[i] = ev
			if opts.OnEvaluate != nil {
				opts.OnEvaluate(ev)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var surface, failed []Evaluation
	for _, ev := range evals {
		if ev.Err != nil {
			failed = append(failed, ev)
			continue
		}
		if math.IsNaN(ev.Score) || math.IsInf(ev.Score, 0) {
			ev.Score = 0
		}
		surface = append(surface, ev)
	}
	if len(surface) == 0 {
		return nil, fmt.Errorf("%w: %s: every candidate failed: %v", ErrNoCandidates, spec.Name, failed[0].Err)
	}

	best := 0
	for i := range surface {
		if surface[i].Score > surface[best].Score {
			best = i
		}
	}

	res := &Result{
		Strategy:   spec.Name,
		Asset:      settings.Asset,
		Objective:  objName,
		Exhaustive: exhaustive,
		GridSize:   d.Size(),
		Best:       surface[best],
		Surface:    surface,
		Failed:     failed,
		Duration:   time.Since(start),
	}

	log.Info().
		Str("strategy", spec.Name).
		Str("asset", settings.Asset).
		Str("params", res.Best.Params.String()).
		Float64("score", res.Best.Score).
		Dur("duration", res.Duration).
		Msg("optimization complete")

	return res, nil
}

// merge layers the sets left to right into dst, allocating it when nil.
func merge(dst backtest.ParamSet, sets ...backtest.ParamSet) backtest.ParamSet {
	if dst == nil {
		dst = make(backtest.ParamSet)
	}
	for _, ps := range sets {
		for k, v := range ps {
			dst[k] = v
		}
	}
	return dst
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible sampling, not security
}
