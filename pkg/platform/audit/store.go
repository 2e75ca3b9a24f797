package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store appends events to the outbox.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxStore is the relay's view of the outbox.
type OutboxStore interface {
	// ListUnpublished returns the oldest unpublished entries, locking them
	// for the surrounding transaction.
	ListUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []OutboxEntryID) error
	CountUnpublished(ctx context.Context) (int, error)
}

// OutboxEntryID identifies an outbox row.
type OutboxEntryID = uuid.UUID
