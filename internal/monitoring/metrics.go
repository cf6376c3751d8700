package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ideaforge"

// Generation outcomes used as the "outcome" label
const (
	OutcomeSuccess       = "success"
	OutcomeRateLimited   = "rate_limited"
	OutcomeFailed        = "failed"
	OutcomeEmptyResponse = "empty_response"
)

// Metrics holds the Prometheus collectors of the service on a private registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	generations       *prometheus.CounterVec
	generationLatency prometheus.Histogram
	ideasGenerated    prometheus.Counter
	normalizerPaths   *prometheus.CounterVec

	completionCalls *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec

	rateLimitBlocks   *prometheus.CounterVec
	rateLimitFallback *prometheus.CounterVec

	analyticsWriteErrors prometheus.Counter
	cacheLookups         *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http",
			Name: "requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http",
			Name:    "request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "generation",
			Name: "requests_total",
			Help: "Idea generation requests by outcome",
		}, []string{"outcome"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "generation",
			Name:    "duration_seconds",
			Help:    "End-to-end idea generation latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		ideasGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "generation",
			Name: "ideas_total",
			Help: "Ideas returned to callers",
		}),
		normalizerPaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "normalizer",
			Name: "parses_total",
			Help: "Model responses by the parser path that produced the ideas",
		}, []string{"path"}),
		completionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "completion",
			Name: "calls_total",
			Help: "Completion endpoint calls by result",
		}, []string{"result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "completion",
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),
		rateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ratelimit",
			Name: "blocks_total",
			Help: "Requests denied by a rate limiter",
		}, []string{"limiter"}),
		rateLimitFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ratelimit",
			Name: "fallback_total",
			Help: "Rate limit checks served by the in-memory fallback after a store error",
		}, []string{"limiter"}),
		analyticsWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analytics",
			Name: "write_errors_total",
			Help: "Analytics records that could not be persisted",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "lookups_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpLatency,
		m.generations,
		m.generationLatency,
		m.ideasGenerated,
		m.normalizerPaths,
		m.completionCalls,
		m.breakerState,
		m.rateLimitBlocks,
		m.rateLimitFallback,
		m.analyticsWriteErrors,
		m.cacheLookups,
	)

	return m
}

// Registry exposes the private registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one finished HTTP request
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGeneration records one generation attempt
func (m *Metrics) RecordGeneration(outcome string, ideas int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.generationLatency.Observe(duration.Seconds())
	if ideas > 0 {
		m.ideasGenerated.Add(float64(ideas))
	}
}

// RecordNormalizerPath records which parser produced the ideas ("json", "text" or "generic")
func (m *Metrics) RecordNormalizerPath(path string) {
	if m == nil {
		return
	}
	m.normalizerPaths.WithLabelValues(path).Inc()
}

// RecordCompletionCall records a completion endpoint result ("ok", "status", "transport", "empty", "breaker_open")
func (m *Metrics) RecordCompletionCall(result string) {
	if m == nil {
		return
	}
	m.completionCalls.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState publishes the state of a named breaker
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// IncrementRateLimitBlock counts a denial from the named limiter
func (m *Metrics) IncrementRateLimitBlock(limiter string) {
	if m == nil {
		return
	}
	m.rateLimitBlocks.WithLabelValues(limiter).Inc()
}

// IncrementRateLimitFallback counts a check served by the in-memory fallback
func (m *Metrics) IncrementRateLimitFallback(limiter string) {
	if m == nil {
		return
	}
	m.rateLimitFallback.WithLabelValues(limiter).Inc()
}

// IncrementAnalyticsWriteError counts a swallowed analytics persistence failure
func (m *Metrics) IncrementAnalyticsWriteError() {
	if m == nil {
		return
	}
	m.analyticsWriteErrors.Inc()
}

// IncrementCacheHit counts a lookup served from the named cache
func (m *Metrics) IncrementCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

// IncrementCacheMiss counts a lookup the named cache could not serve
func (m *Metrics) IncrementCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "miss").Inc()
}
