// Package metrics exports Prometheus metrics for the matching pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the matching pipeline collectors. A nil *Metrics is valid
// and turns every record call into a no-op, so components can be constructed
// without observability wired up (tests, CLI tools).
type Metrics struct {
	registry *prometheus.Registry

	embeddingCalls  prometheus.Counter
	embeddingErrors prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	judgeCalls      prometheus.Counter
	judgeFallbacks  prometheus.Counter
	matchLatency    prometheus.Histogram
}

// New creates and registers the matching pipeline collectors. If registry is
// nil, a fresh one is created.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		embeddingCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_embedding_provider_calls_total",
			Help: "Number of embedding provider requests (cache misses).",
		}),
		embeddingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_embedding_provider_errors_total",
			Help: "Number of failed embedding provider requests.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_embedding_cache_hits_total",
			Help: "Number of embedding cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_embedding_cache_misses_total",
			Help: "Number of embedding cache misses (not found or stale).",
		}),
		judgeCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_judge_calls_total",
			Help: "Number of judgment provider evaluations.",
		}),
		judgeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_judge_fallbacks_total",
			Help: "Number of judgment evaluations that degraded to the fallback verdict.",
		}),
		matchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillswap_match_request_duration_seconds",
			Help:    "Wall-clock duration of FindMatchesForUser.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}

	registry.MustRegister(
		m.embeddingCalls,
		m.embeddingErrors,
		m.cacheHits,
		m.cacheMisses,
		m.judgeCalls,
		m.judgeFallbacks,
		m.matchLatency,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordEmbeddingCall() {
	if m != nil {
		m.embeddingCalls.Inc()
	}
}

func (m *Metrics) RecordEmbeddingError() {
	if m != nil {
		m.embeddingErrors.Inc()
	}
}

func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) RecordJudgeCall() {
	if m != nil {
		m.judgeCalls.Inc()
	}
}

func (m *Metrics) RecordJudgeFallback() {
	if m != nil {
		m.judgeFallbacks.Inc()
	}
}

func (m *Metrics) ObserveMatchDuration(seconds float64) {
	if m != nil {
		m.matchLatency.Observe(seconds)
	}
}
