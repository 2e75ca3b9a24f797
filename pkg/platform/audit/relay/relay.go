// Package relay drains the audit outbox to the message broker.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "bciers/pkg/platform/audit"
	"bciers/pkg/platform/tx"
)

const defaultBatchSize = 100

// Message is one record handed to the producer.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Producer publishes a batch synchronously; it returns only once every
// message has been acknowledged or an error occurred.
type Producer interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Relay moves unpublished outbox rows to the producer and marks them
// published in the same transaction that locked them.
type Relay struct {
	store     audit.OutboxStore
	producer  Producer
	tx        tx.Runner
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func New(store audit.OutboxStore, producer Producer, runner tx.Runner, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		producer:  producer,
		tx:        runner,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce relays one batch and returns how many entries were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.store.ListUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		msgs := make([]Message, len(entries))
		ids := make([]audit.OutboxEntryID, len(entries))
		for i, e := range entries {
			msgs[i] = Message{
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: map[string]string{
					"event_type": string(e.Action),
					"event_id":   e.ID.String(),
				},
			}
			ids[i] = e.ID
		}
		if err := r.producer.Publish(ctx, msgs); err != nil {
			return fmt.Errorf("publish audit batch: %w", err)
		}
		if err := r.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		r.metrics.failed()
		r.logger.ErrorContext(ctx, "audit relay failed", "error", err)
		return 0, err
	}
	r.metrics.published(published)
	if n, err := r.store.CountUnpublished(ctx); err == nil {
		r.metrics.backlog(n)
	}
	return published, nil
}

// Metrics tracks relay throughput and backlog.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Backlog   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_audit_relay_published_total",
			Help: "Outbox entries published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bciers_audit_relay_failures_total",
			Help: "Relay batches that failed",
		}),
		Backlog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bciers_audit_outbox_backlog",
			Help: "Unpublished outbox entries after the last relay run",
		}),
	}
}

func (m *Metrics) published(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) backlog(n int) {
	if m != nil {
		m.Backlog.Set(float64(n))
	}
}
