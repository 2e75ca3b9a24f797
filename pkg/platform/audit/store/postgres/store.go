package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "bciers/pkg/platform/audit"
	txcontext "bciers/pkg/platform/tx"
)

// Store implements the audit outbox in erc.audit_outbox. Append joins the
// caller's transaction so the event commits with the change it describes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event.ToPayload())
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	var actor *uuid.UUID
	if !event.ActorGUID.IsNil() {
		u := event.ActorGUID.UUID
		actor = &u
	}
	_, err = txcontext.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO erc.audit_outbox (id, event_type, aggregate_id, actor_guid, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, string(event.Action), event.AggregateID, actor, payload, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Store) ListUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	rows, err := txcontext.Q(ctx, s.db).QueryContext(ctx, `
		SELECT id, event_type, aggregate_id, payload, created_at
		FROM erc.audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var (
			e      audit.OutboxEntry
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.AggregateID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.Action = audit.Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []audit.OutboxEntryID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE erc.audit_outbox SET published_at = now()
		WHERE id = ANY($1::uuid[])
	`, pq.Array(raw))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (s *Store) CountUnpublished(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM erc.audit_outbox WHERE published_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return n, nil
}
