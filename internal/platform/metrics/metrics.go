package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsExpired prometheus.Counter
	SecretsRotated  prometheus.Counter
	EndpointLatency *prometheus.HistogramVec

	// Token broker metrics
	TokenExchanges  *prometheus.CounterVec
	TokenCacheHits  prometheus.Counter
	TokenCacheMiss  prometheus.Counter
	TokenInvalidate prometheus.Counter

	// Pipeline metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamRetries  *prometheus.CounterVec
	UpstreamLatency  prometheus.Histogram
	CircuitOpened    prometheus.Counter

	// Run metrics
	RunsStarted    prometheus.Counter
	RunsCompleted  *prometheus.CounterVec
	ActionOutcomes *prometheus.CounterVec
	RunDuration    prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_sessions_created_total",
			Help: "Total number of portal sessions created",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_sessions_expired_total",
			Help: "Total number of session resolutions rejected as expired",
		}),
		SecretsRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_secrets_rotated_total",
			Help: "Total number of tenant secret rotations",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TokenExchanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_token_exchanges_total",
			Help: "Total number of client-credentials exchanges, labeled by result",
		}, []string{"result"}),
		TokenCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_token_cache_hits_total",
			Help: "Total number of token requests served from cache",
		}),
		TokenCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_token_cache_misses_total",
			Help: "Total number of token requests requiring an exchange",
		}),
		TokenInvalidate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_token_invalidations_total",
			Help: "Total number of cached tokens invalidated",
		}),
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_upstream_requests_total",
			Help: "Total number of directory API requests, labeled by outcome",
		}, []string{"outcome"}),
		UpstreamRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_upstream_retries_total",
			Help: "Total number of directory API retries, labeled by reason",
		}, []string{"reason"}),
		UpstreamLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_upstream_latency_seconds",
			Help:    "Latency of directory API calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		CircuitOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_circuit_opened_total",
			Help: "Total number of times the directory circuit breaker opened",
		}),
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_runs_started_total",
			Help: "Total number of lifecycle runs started",
		}),
		RunsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_runs_completed_total",
			Help: "Total number of lifecycle runs sealed, labeled by status",
		}, []string{"status"}),
		ActionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_action_outcomes_total",
			Help: "Total number of action outcomes, labeled by action and status",
		}, []string{"action", "status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_run_duration_seconds",
			Help:    "Wall-clock duration of lifecycle runs in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}
}

func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncrementSessionsExpired() {
	m.SessionsExpired.Inc()
}

func (m *Metrics) IncrementSecretsRotated() {
	m.SecretsRotated.Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// IncrementTokenExchanges records an exchange attempt with its result label
// (success, rejected, network_error).
func (m *Metrics) IncrementTokenExchanges(result string) {
	m.TokenExchanges.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokenCacheHits() {
	m.TokenCacheHits.Inc()
}

func (m *Metrics) IncrementTokenCacheMisses() {
	m.TokenCacheMiss.Inc()
}

func (m *Metrics) IncrementTokenInvalidations() {
	m.TokenInvalidate.Inc()
}

// IncrementUpstreamRequests records a finished directory call with its outcome
// label (success, throttled, unavailable, rejected, unauthorized).
func (m *Metrics) IncrementUpstreamRequests(outcome string) {
	m.UpstreamRequests.WithLabelValues(outcome).Inc()
}

// IncrementUpstreamRetries records a retry with its reason label
// (throttled, server_error, network_error, unauthorized_refresh).
func (m *Metrics) IncrementUpstreamRetries(reason string) {
	m.UpstreamRetries.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveUpstreamLatency(durationSeconds float64) {
	m.UpstreamLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementCircuitOpened() {
	m.CircuitOpened.Inc()
}

func (m *Metrics) IncrementRunsStarted() {
	m.RunsStarted.Inc()
}

func (m *Metrics) IncrementRunsCompleted(status string) {
	m.RunsCompleted.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementActionOutcomes(action, status string) {
	m.ActionOutcomes.WithLabelValues(action, status).Inc()
}

func (m *Metrics) ObserveRunDuration(durationSeconds float64) {
	m.RunDuration.Observe(durationSeconds)
}
