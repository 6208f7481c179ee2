// Package telemetry holds the Prometheus collectors and the OpenTelemetry
// tracer setup shared by the loop driver, the runner and the gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for loop runs and tool calls.
const (
	OutcomeComplete  = "complete"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
	OutcomeOK        = "ok"
)

// Metrics groups the collectors recorded by the agent loop. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	LoopRuns         *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	ToolCalls        *prometheus.CounterVec
	LoopIterations   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests use to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoopRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_loop_runs_total",
			Help: "Tool-use loop invocations by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_provider_requests_total",
			Help: "Provider round-trips by provider and HTTP status class.",
		}, []string{"provider", "status"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_tool_calls_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		LoopIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crew_loop_iterations",
			Help:    "Provider round-trips per loop invocation.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LoopRuns, m.ProviderRequests, m.ToolCalls, m.LoopIterations)
	}
	return m
}

// ObserveRun records the end of one loop invocation.
func (m *Metrics) ObserveRun(provider, outcome string, iterations int) {
	if m == nil {
		return
	}
	m.LoopRuns.WithLabelValues(provider, outcome).Inc()
	m.LoopIterations.Observe(float64(iterations))
}

// ObserveRequest records one provider round-trip. status is "ok" or the
// HTTP status code of a failed request.
func (m *Metrics) ObserveRequest(provider, status string) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, status).Inc()
}

// ObserveTool records one tool execution.
func (m *Metrics) ObserveTool(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}
