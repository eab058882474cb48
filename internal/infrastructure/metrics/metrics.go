// Package metrics provides Prometheus metrics for the health agent service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts HTTP requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_agent_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_agent_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Turns counts routed turns by handler and result status.
	Turns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_agent_turns_total",
			Help: "Total number of processed chat turns",
		},
		[]string{"handler", "status"},
	)

	// CapabilityDuration tracks LLM and vision call latency.
	CapabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_agent_capability_duration_seconds",
			Help:    "Duration of capability invocations",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)

	// CapabilityFailures counts failed capability invocations, including timeouts.
	CapabilityFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_agent_capability_failures_total",
			Help: "Total number of failed capability invocations",
		},
		[]string{"capability", "reason"},
	)

	// ActiveConnections tracks open WebSocket connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_agent_ws_active_connections",
			Help: "Number of currently open chat WebSocket connections",
		},
	)

	// SessionsCreated tracks the total number of sessions created.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "health_agent_sessions_created_total",
			Help: "Total number of chat sessions created",
		},
	)

	// SessionsDeleted tracks the total number of sessions soft-deleted.
	SessionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "health_agent_sessions_deleted_total",
			Help: "Total number of chat sessions soft-deleted",
		},
	)

	// TransactionTransitions tracks pending transaction state changes.
	TransactionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_agent_transaction_transitions_total",
			Help: "Total number of pending transaction state transitions",
		},
		[]string{"to_state"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, seconds float64) {
	HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// RecordTurn records a routed turn.
func RecordTurn(handler, status string) {
	Turns.WithLabelValues(handler, status).Inc()
}

// RecordCapability records a capability invocation.
func RecordCapability(capability string, seconds float64, failureReason string) {
	CapabilityDuration.WithLabelValues(capability).Observe(seconds)
	if failureReason != "" {
		CapabilityFailures.WithLabelValues(capability, failureReason).Inc()
	}
}

// RecordSessionCreated increments session creation metrics.
func RecordSessionCreated() {
	SessionsCreated.Inc()
}

// RecordSessionDeleted increments session deletion metrics.
func RecordSessionDeleted() {
	SessionsDeleted.Inc()
}

// RecordTransition records a pending transaction state change.
func RecordTransition(toState string) {
	TransactionTransitions.WithLabelValues(toState).Inc()
}
