package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Query metrics
	QueriesTotal    *prometheus.CounterVec
	QueriesInFlight prometheus.Gauge

	// Pipeline metrics
	StageDuration       *prometheus.HistogramVec
	ReasoningCallsTotal *prometheus.CounterVec

	// Tool metrics
	ToolExecutionsTotal       *prometheus.CounterVec
	ToolExecutionDuration     *prometheus.HistogramVec
	ToolRequestsRejectedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Total number of queries by terminal status",
			},
			[]string{"status"},
		),
		QueriesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "queries_in_flight",
				Help: "Number of queries currently being processed",
			},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		ReasoningCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reasoning_calls_total",
				Help: "Total number of reasoning provider calls by stage and status",
			},
			[]string{"stage", "status"},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		ToolRequestsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_requests_rejected_total",
				Help: "Total number of tool requests dropped before dispatch",
			},
			[]string{"reason"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.QueriesTotal)
	m.registry.MustRegister(m.QueriesInFlight)

	m.registry.MustRegister(m.StageDuration)
	m.registry.MustRegister(m.ReasoningCallsTotal)

	m.registry.MustRegister(m.ToolExecutionsTotal)
	m.registry.MustRegister(m.ToolExecutionDuration)
	m.registry.MustRegister(m.ToolRequestsRejectedTotal)
}

// QueryStarted marks a query as in flight
func (m *Metrics) QueryStarted() {
	if m == nil {
		return
	}
	m.QueriesInFlight.Inc()
}

// QueryFinished records the terminal status of a query
func (m *Metrics) QueryFinished(status string) {
	if m == nil {
		return
	}
	m.QueriesInFlight.Dec()
	m.QueriesTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the duration of a pipeline stage
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ReasoningCall records one reasoning provider call
func (m *Metrics) ReasoningCall(stage string, err error) {
	if m == nil {
		return
	}
	m.ReasoningCallsTotal.WithLabelValues(stage, statusOf(err == nil)).Inc()
}

// ToolExecuted records one tool execution
func (m *Metrics) ToolExecuted(tool string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, statusOf(ok)).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ToolRejected records a tool request dropped during validation
func (m *Metrics) ToolRejected(reason string) {
	if m == nil {
		return
	}
	m.ToolRequestsRejectedTotal.WithLabelValues(reason).Inc()
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

func statusOf(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
