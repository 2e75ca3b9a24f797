// Package compliance provides the fail-closed audit publisher for regulatory
// events. Emit writes to the outbox synchronously; when it fails the calling
// operation must fail too.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

// Publisher emits events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a publisher over an outbox-backed store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills actor, request ID and timestamp from ctx when absent and
// writes the event inside the caller's transaction.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.AggregateID == "" {
		return fmt.Errorf("audit event %s requires AggregateID", event.Action)
	}
	if event.ActorGUID.IsNil() {
		event.ActorGUID = requestcontext.UserGUID(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.incPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"aggregate_id", event.AggregateID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.observe(event.Action, start)
	if p.logger != nil {
		p.logger.InfoContext(ctx, string(event.Action),
			"log_type", "audit",
			"event", event.Action,
			"aggregate_id", event.AggregateID,
			"request_id", event.RequestID,
		)
	}
	return nil
}
