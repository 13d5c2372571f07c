package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the console's Prometheus collectors
type Metrics struct {
	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	GuardDecisions  *prometheus.CounterVec
	Logins          *prometheus.CounterVec
}

// New registers the collectors on registry
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		BackendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pace_admin_backend_calls_total",
				Help: "Total number of calls made to the PACE backend API",
			},
			[]string{"operation", "outcome"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pace_admin_backend_call_duration_seconds",
				Help:    "Duration of calls made to the PACE backend API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pace_admin_guard_decisions_total",
				Help: "Route guard decisions by subtree and result",
			},
			[]string{"subtree", "result"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pace_admin_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveBackendCall records one backend round trip. Safe on a nil receiver
func (m *Metrics) ObserveBackendCall(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(operation, outcome).Inc()
	m.BackendDuration.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) ObserveGuardDecision(subtree, result string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(subtree, result).Inc()
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}
