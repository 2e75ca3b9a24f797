package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	OperationsRegistered prometheus.Counter
	IdentifiersIssued    *prometheus.CounterVec
	AccessDecisions      *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		OperationsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_operations_registered_total",
			Help: "Operations whose registration was submitted",
		}),
		IdentifiersIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_identifiers_issued_total",
			Help: "BORO and BCGHG identifiers issued",
		}, []string{"kind"}),
		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_access_request_decisions_total",
			Help: "Operator access requests decided",
		}, []string{"decision"}),
	}
}

func (m *Metrics) IncOperationRegistered() {
	if m == nil {
		return
	}
	m.OperationsRegistered.Inc()
}

func (m *Metrics) IncIdentifierIssued(kind string) {
	if m == nil {
		return
	}
	m.IdentifiersIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncAccessDecision(decision string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(decision).Inc()
}
