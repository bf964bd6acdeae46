package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes index engine metrics to Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	computations *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	lastLevel    *prometheus.GaugeVec
}

// New creates a recorder on its own registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		computations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadindex_signal_computations_total",
				Help: "Signal bodies evaluated (cache misses)",
			},
			[]string{"signal"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadindex_signal_cache_hits_total",
				Help: "Signal lookups served from the state store",
			},
			[]string{"signal"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadindex_runs_total",
				Help: "Index runs by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spreadindex_run_duration_seconds",
				Help:    "Duration of index runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		lastLevel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spreadindex_last_level",
				Help: "Final index level of the latest successful run",
			},
			[]string{"strategy"},
		),
	}
}

// Registry returns the registry to expose over HTTP
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordComputation records one evaluated signal body
func (r *Recorder) RecordComputation(signal string) {
	if r == nil {
		return
	}
	r.computations.WithLabelValues(signal).Inc()
}

// RecordCacheHit records one memoised lookup
func (r *Recorder) RecordCacheHit(signal string) {
	if r == nil {
		return
	}
	r.cacheHits.WithLabelValues(signal).Inc()
}

// RecordRun records a finished run
func (r *Recorder) RecordRun(strategy string, seconds float64, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.runs.WithLabelValues(strategy, outcome).Inc()
	r.runDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordLevel records the final level of a run
func (r *Recorder) RecordLevel(strategy string, level float64) {
	if r == nil {
		return
	}
	r.lastLevel.WithLabelValues(strategy).Set(level)
}
