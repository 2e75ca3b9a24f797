package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records external call outcomes. Create it once per process.
type Metrics struct {
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	BreakerOpen  *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Calls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_external_calls_total",
			Help: "External API calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bciers_external_call_duration_seconds",
			Help:    "External API call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		BreakerOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bciers_external_circuit_open",
			Help: "1 while the provider circuit breaker is open",
		}, []string{"provider"}),
	}
}

func (m *Metrics) observe(providerName, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(providerName, outcome).Inc()
	m.CallDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
}

func (m *Metrics) breaker(providerName string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(providerName).Set(v)
}
