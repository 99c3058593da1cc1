package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ControlMetrics provides observability for the control adapter.
//
// This interface is optional - if not provided to the adapter, a no-op
// implementation is used with zero overhead.
type ControlMetrics interface {
	// RecordRequest records a completed request with the path it targeted,
	// the response status written back, and the processing duration.
	RecordRequest(path string, status int, duration time.Duration)

	// RecordAuthFailure records a rejected request by failure reason
	// (e.g. "invalid_key", "nonce_from_past", "malformed_http").
	RecordAuthFailure(reason string)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()
}

// controlMetrics is the Prometheus implementation of ControlMetrics.
type controlMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	authFailures        *prometheus.CounterVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
}

// NewControlMetrics creates a Prometheus-backed ControlMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewControlMetrics() ControlMetrics {
	if !IsEnabled() {
		return NewNoopControlMetrics()
	}

	reg := GetRegistry()

	return &controlMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotectl_requests_total",
				Help: "Total number of requests by path and response status",
			},
			[]string{"path", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "remotectl_request_duration_seconds",
				Help: "Duration of request handling in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					10.0,  // 10s
				},
			},
			[]string{"path"},
		),
		authFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotectl_auth_failures_total",
				Help: "Total number of rejected requests by failure reason",
			},
			[]string{"reason"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "remotectl_active_connections",
				Help: "Current number of active connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "remotectl_connections_accepted_total",
				Help: "Total number of connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "remotectl_connections_closed_total",
				Help: "Total number of connections closed",
			},
		),
	}
}

func (m *controlMetrics) RecordRequest(path string, status int, duration time.Duration) {
	statusLabel := "success"
	if status >= 400 {
		statusLabel = "error"
	}

	m.requestsTotal.WithLabelValues(path, statusLabel).Inc()
	m.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

func (m *controlMetrics) RecordAuthFailure(reason string) {
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *controlMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *controlMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *controlMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

// noopControlMetrics is a no-op implementation of ControlMetrics.
type noopControlMetrics struct{}

// NewNoopControlMetrics returns a ControlMetrics that records nothing.
func NewNoopControlMetrics() ControlMetrics {
	return noopControlMetrics{}
}

func (noopControlMetrics) RecordRequest(path string, status int, duration time.Duration) {}
func (noopControlMetrics) RecordAuthFailure(reason string)                               {}
func (noopControlMetrics) SetActiveConnections(count int32)                              {}
func (noopControlMetrics) RecordConnectionAccepted()                                     {}
func (noopControlMetrics) RecordConnectionClosed()                                       {}
