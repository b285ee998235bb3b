// Package metrics defines the Prometheus metrics exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "captaindraft"

// Metrics holds all Prometheus metrics.
// Pass to components that need to record metrics.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	Teardowns         *prometheus.CounterVec
	ActiveConnections *prometheus.GaugeVec
	HandshakeFailures *prometheus.CounterVec
	Actions           *prometheus.CounterVec
	DroppedMessages   prometheus.Counter
	InternalErrors    prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates and registers all metrics with the given registry
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of live draft sessions",
			},
		),
		SessionsCreated: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Total draft sessions created",
			},
		),
		Teardowns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_teardowns_total",
				Help:      "Total sessions torn down",
			},
			[]string{"reason"}, // idle/host_timeout/internal_error/shutdown
		),
		ActiveConnections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of bound connections",
			},
			[]string{"role"},
		),
		HandshakeFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handshake_failures_total",
				Help:      "Total connections rejected during the handshake",
			},
			[]string{"reason"},
		),
		Actions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total inbound draft actions",
			},
			[]string{"action", "result"}, // result=applied/ignored
		),
		DroppedMessages: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_messages_total",
				Help:      "Total outbound messages dropped for slow connections",
			},
		),
		InternalErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "internal_errors_total",
				Help:      "Total internal consistency failures",
			},
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// NewNop returns metrics registered on a throwaway registry
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
