package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Hand-off metrics
	HandoffsTotal    *prometheus.CounterVec
	LoginKeysIssued  prometheus.Counter
	LoginKeysRotated prometheus.Counter
	LoginKeysActive  prometheus.Gauge
	DefensiveLogouts prometheus.Counter

	// Cross-server token metrics
	TokensIssuedTotal  prometheus.Counter
	TokenVerifications *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HandoffsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_handoffs_total",
				Help: "Hand-off attempts by path (local/server) and outcome",
			},
			[]string{"path", "outcome"},
		),
		LoginKeysIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_login_keys_issued_total",
				Help: "Total number of login keys issued",
			},
		),
		LoginKeysRotated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_login_keys_rotated_total",
				Help: "Total number of login keys invalidated by rotation",
			},
		),
		LoginKeysActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_login_keys_active",
				Help: "Number of login keys currently held in the registry",
			},
		),
		DefensiveLogouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_defensive_logouts_total",
				Help: "Logouts forced by missing or invalid cross-server credentials",
			},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_server_tokens_issued_total",
				Help: "Total number of cross-server bearer tokens issued",
			},
		),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_server_token_verifications_total",
				Help: "Cross-server token verification attempts by result",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HandoffsTotal,
		m.LoginKeysIssued,
		m.LoginKeysRotated,
		m.LoginKeysActive,
		m.DefensiveLogouts,
		m.TokensIssuedTotal,
		m.TokenVerifications,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
