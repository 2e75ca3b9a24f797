package compliance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "bciers/pkg/platform/audit"
)

// Metrics holds Prometheus metrics for compliance audit publishing.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_audit_events_emitted_total",
			Help: "Audit events written to the outbox by action",
		}, []string{"action"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_audit_persist_failures_total",
			Help: "Audit events that failed to persist",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bciers_audit_persist_duration_seconds",
			Help:    "Time to write an audit event to the outbox",
			Buckets: []float64{.001, .005, .01, .05, .1, .5},
		}),
	}
}

func (m *Metrics) incPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) observe(action audit.Action, start time.Time) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(string(action)).Inc()
	m.PersistDuration.Observe(time.Since(start).Seconds())
}
