package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBacktest(t *testing.T) {
	before := testutil.ToFloat64(BacktestsTotal.WithLabelValues("SmaCross", "ok"))
	ObserveBacktest("SmaCross", 5*time.Millisecond, nil)
	ObserveBacktest("SmaCross", time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(BacktestsTotal.WithLabelValues("SmaCross", "ok")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(BacktestsTotal.WithLabelValues("SmaCross", "error")), 1.0)
}

func TestObserveCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(ParamCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(ParamCacheLookups.WithLabelValues("miss"))

	ObserveCacheLookup(true)
	ObserveCacheLookup(false)
	ObserveCacheLookup(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(ParamCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(ParamCacheLookups.WithLabelValues("miss")))
}

func TestObserveCandidate(t *testing.T) {
	before := testutil.ToFloat64(CandidatesEvaluated.WithLabelValues("Noop", "ok"))
	ObserveCandidate("Noop", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(CandidatesEvaluated.WithLabelValues("Noop", "ok")))
}
