package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds all Prometheus metrics for CoinPulse. It implements
// fetch.Observer so the orchestrator reports cache and provider events
// without importing this package.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ProviderAttempts  *prometheus.CounterVec
	ProviderSuccesses *prometheus.CounterVec
	ProviderFailures  *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
}

// NewMetricsRegistry creates and registers all CoinPulse metrics.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpulse_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route and status",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route", "status"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_cache_hits_total",
				Help: "Cache hits by logical operation",
			},
			[]string{"operation"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_cache_misses_total",
				Help: "Cache misses by logical operation",
			},
			[]string{"operation"},
		),

		ProviderAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_provider_attempts_total",
				Help: "Upstream fetch attempts by provider",
			},
			[]string{"provider"},
		),

		ProviderSuccesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_provider_successes_total",
				Help: "Successful upstream fetches by provider",
			},
			[]string{"provider"},
		),

		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_provider_failures_total",
				Help: "Failed upstream fetches by provider and error code",
			},
			[]string{"provider", "code"},
		),

		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpulse_provider_latency_seconds",
				Help:    "Upstream fetch latency by provider",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0},
			},
			[]string{"provider"},
		),
	}

	m.registry.MustRegister(
		m.RequestDuration,
		m.CacheHits,
		m.CacheMisses,
		m.ProviderAttempts,
		m.ProviderSuccesses,
		m.ProviderFailures,
		m.ProviderLatency,
	)

	return m
}

// RegisterAvailabilityGauge registers a gauge reporting how many providers
// are currently outside their backoff window. fn is called at scrape time.
func (m *MetricsRegistry) RegisterAvailabilityGauge(fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "coinpulse_providers_available",
			Help: "Number of providers currently available for selection",
		},
		fn,
	))
}

// Handler returns the /metrics scrape handler.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (m *MetricsRegistry) Gather() prometheus.Gatherer {
	return m.registry
}

// fetch.Observer implementation

func (m *MetricsRegistry) CacheHit(operation string) {
	m.CacheHits.WithLabelValues(operation).Inc()
}

func (m *MetricsRegistry) CacheMiss(operation string) {
	m.CacheMisses.WithLabelValues(operation).Inc()
}

func (m *MetricsRegistry) ProviderAttempt(providerID string) {
	m.ProviderAttempts.WithLabelValues(providerID).Inc()
}

func (m *MetricsRegistry) ProviderSuccess(providerID string, duration time.Duration) {
	m.ProviderSuccesses.WithLabelValues(providerID).Inc()
	m.ProviderLatency.WithLabelValues(providerID).Observe(duration.Seconds())
}

func (m *MetricsRegistry) ProviderFailure(providerID, code string) {
	m.ProviderFailures.WithLabelValues(providerID, code).Inc()
}
