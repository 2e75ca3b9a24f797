package tasks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers both one-off tasks and scheduled jobs.
type Metrics struct {
	Runs       *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	QueueDepth prometheus.Gauge
	Skipped    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_task_runs_total",
			Help: "Background task runs by task and outcome",
		}, []string{"task", "outcome"}),
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bciers_task_duration_seconds",
			Help:    "Background task duration including retries",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"task"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bciers_task_queue_depth",
			Help: "One-off tasks waiting for a worker",
		}),
		Skipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_task_skipped_total",
			Help: "Scheduled runs skipped because the previous run was still active",
		}, []string{"task"}),
	}
}

func (m *Metrics) observe(task string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Runs.WithLabelValues(task, outcome).Inc()
	m.Duration.WithLabelValues(task).Observe(time.Since(start).Seconds())
}

func (m *Metrics) queueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) skipped(task string) {
	if m != nil {
		m.Skipped.WithLabelValues(task).Inc()
	}
}
