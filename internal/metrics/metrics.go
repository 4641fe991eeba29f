package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the voice-session core. Each
// instance owns its registry so independent managers never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Session lifecycle
	SessionsActive       prometheus.Gauge
	SessionsStartedTotal prometheus.Counter
	SessionsEndedTotal   *prometheus.CounterVec

	// Per-session activity
	TurnsTotal     prometheus.Counter
	ToolCallsTotal prometheus.Counter

	// Sink health
	SinkErrorsTotal prometheus.Counter

	// End-of-session distributions
	SessionDurationSeconds prometheus.Histogram
	SessionCostUSD         prometheus.Histogram
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "voice_sessions_active",
				Help: "Number of currently active voice sessions",
			},
		),
		SessionsStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voice_sessions_started_total",
				Help: "Total number of voice sessions created",
			},
		),
		SessionsEndedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_sessions_ended_total",
				Help: "Total number of voice sessions ended, by reason",
			},
			[]string{"reason"},
		),

		TurnsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voice_turns_total",
				Help: "Total number of conversational turns started",
			},
		),
		ToolCallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voice_tool_calls_total",
				Help: "Total number of tool calls recorded",
			},
		),

		SinkErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voice_sink_errors_total",
				Help: "Total number of trace-sink call failures",
			},
		),

		SessionDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voice_session_duration_seconds",
				Help:    "Duration of ended voice sessions in seconds",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
			},
		),
		SessionCostUSD: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voice_session_cost_usd",
				Help:    "Estimated cost of ended voice sessions in USD",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsStartedTotal)
	m.registry.MustRegister(m.SessionsEndedTotal)
	m.registry.MustRegister(m.TurnsTotal)
	m.registry.MustRegister(m.ToolCallsTotal)
	m.registry.MustRegister(m.SinkErrorsTotal)
	m.registry.MustRegister(m.SessionDurationSeconds)
	m.registry.MustRegister(m.SessionCostUSD)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
