// Package observability provides Prometheus metrics and in-process usage
// statistics for benchmarks and the result cache.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// Metrics holds the collectors shared by the cache, the benchmark pool
// and the HTTP layer. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheLookups    *prometheus.CounterVec
	cacheErrors     *prometheus.CounterVec
	computeDuration *prometheus.HistogramVec

	constructions *prometheus.CounterVec
	loads         *prometheus.CounterVec
	scoreDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: function, result (hit, miss, bypass)
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainscore",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by outcome",
		}, []string{"function", "result"}),

		// Labels: function, op (read, write, decode)
		cacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainscore",
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Result cache backend failures",
		}, []string{"function", "op"}),

		computeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainscore",
			Subsystem: "cache",
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing values on cache miss",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"function"}),

		// Labels: benchmark, status (success, error)
		constructions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainscore",
			Subsystem: "pool",
			Name:      "constructions_total",
			Help:      "Benchmark constructions by status",
		}, []string{"benchmark", "status"}),

		// Labels: benchmark, status (success, unknown, error)
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainscore",
			Subsystem: "pool",
			Name:      "loads_total",
			Help:      "Benchmark lookups by status",
		}, []string{"benchmark", "status"}),

		scoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainscore",
			Subsystem: "benchmark",
			Name:      "score_duration_seconds",
			Help:      "Candidate scoring latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"benchmark", "status"}),
	}
}

// ObserveCacheLookup counts a cache lookup.
func (m *Metrics) ObserveCacheLookup(function, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(function, result).Inc()
}

// ObserveCacheError counts a backend failure.
func (m *Metrics) ObserveCacheError(function, op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(function, op).Inc()
}

// ObserveCompute records how long a cache miss took to compute.
func (m *Metrics) ObserveCompute(function string, d time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.WithLabelValues(function).Observe(d.Seconds())
}

// ObserveConstruction counts a benchmark construction attempt.
func (m *Metrics) ObserveConstruction(benchmark string, err error) {
	if m == nil {
		return
	}
	m.constructions.WithLabelValues(benchmark, status(err)).Inc()
}

// ObserveLoad counts a pool lookup. status is success, unknown or error.
func (m *Metrics) ObserveLoad(benchmark, status string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(benchmark, status).Inc()
}

// ObserveScore records scoring latency.
func (m *Metrics) ObserveScore(benchmark string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.scoreDuration.WithLabelValues(benchmark, status(err)).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
