// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategylab_backtests_total",
			Help: "Final backtest runs by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	BacktestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strategylab_backtest_duration_seconds",
			Help:    "Wall time of a single backtest run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"strategy"},
	)

	CandidatesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategylab_optimizer_candidates_total",
			Help: "Optimizer candidates evaluated by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	OptimizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strategylab_optimize_duration_seconds",
			Help:    "Wall time of a parameter search",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"strategy"},
	)

	ParamCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategylab_param_cache_lookups_total",
			Help: "Optimized-parameter cache lookups by result",
		},
		[]string{"result"},
	)

	BatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strategylab_batch_errors_total",
			Help: "Failed (strategy, asset) pairs in batch runs",
		},
	)
)

// ObserveBacktest records one final run.
func ObserveBacktest(strategy string, d time.Duration, err error) {
	BacktestDuration.WithLabelValues(strategy).Observe(d.Seconds())
	BacktestsTotal.WithLabelValues(strategy, outcome(err)).Inc()
}

// ObserveCandidate records one optimizer candidate.
func ObserveCandidate(strategy string, err error) {
	CandidatesEvaluated.WithLabelValues(strategy, outcome(err)).Inc()
}

// ObserveOptimize records one finished search.
func ObserveOptimize(strategy string, d time.Duration) {
	OptimizeDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		ParamCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	ParamCacheLookups.WithLabelValues("miss").Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
