package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance module.
type Metrics struct {
	VersionsRecorded   *prometheus.CounterVec
	ObligationFees     prometheus.Counter
	InvoicesIssued     *prometheus.CounterVec
	PenaltiesFinalized prometheus.Counter
	UnitsApplied       prometheus.Counter
	CreditsIssued      prometheus.Counter
	RefreshDuration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		VersionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_compliance_versions_recorded_total",
			Help: "Compliance report versions created, by outcome",
		}, []string{"status"}),
		ObligationFees: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_compliance_obligation_fees_dollars_total",
			Help: "Sum of obligation fees raised",
		}),
		InvoicesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_compliance_invoices_issued_total",
			Help: "eLicensing invoices issued, by kind",
		}, []string{"kind"}),
		PenaltiesFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_compliance_penalties_finalized_total",
			Help: "Late-payment penalties that stopped accruing",
		}),
		UnitsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_compliance_units_applied_total",
			Help: "Compliance units surrendered against obligations",
		}),
		CreditsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_compliance_earned_credits_issued_total",
			Help: "Earned credits issued in the registry",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bciers_compliance_obligation_refresh_seconds",
			Help:    "Time to refresh one obligation from eLicensing",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncVersionRecorded(status string) {
	if m == nil {
		return
	}
	m.VersionsRecorded.WithLabelValues(status).Inc()
}

func (m *Metrics) AddObligationFee(dollars float64) {
	if m == nil {
		return
	}
	m.ObligationFees.Add(dollars)
}

func (m *Metrics) IncInvoiceIssued(kind string) {
	if m == nil {
		return
	}
	m.InvoicesIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncPenaltyFinalized() {
	if m == nil {
		return
	}
	m.PenaltiesFinalized.Inc()
}

func (m *Metrics) AddUnitsApplied(units int64) {
	if m == nil {
		return
	}
	m.UnitsApplied.Add(float64(units))
}

func (m *Metrics) AddCreditsIssued(credits int64) {
	if m == nil {
		return
	}
	m.CreditsIssued.Add(float64(credits))
}

func (m *Metrics) ObserveRefresh(start time.Time) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}
