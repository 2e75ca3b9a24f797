package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bciers/internal/notification/models"
	"bciers/internal/platform/database"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.Q(ctx, s.db)
}

func (s *PostgresStore) FindTemplate(ctx context.Context, name string) (*models.Template, error) {
	var t models.Template
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT name, subject, body, updated_at FROM erc.email_template WHERE name = $1`, name,
	).Scan(&t.Name, &t.Subject, &t.Body, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find email template: %w", database.Translate(err))
	}
	return &t, nil
}

func (s *PostgresStore) SaveTemplate(ctx context.Context, t *models.Template) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.email_template (name, subject, body, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, t.Name, t.Subject, t.Body, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save email template: %w", database.Translate(err))
	}
	return nil
}

func (s *PostgresStore) CreateEmail(ctx context.Context, e *models.Email) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.email_notification (id, template_name, recipients, transaction_id, message_ids, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.TemplateName, pq.Array(e.Recipients), e.TransactionID, pq.Array(nonNil(e.MessageIDs)), string(e.Status), e.CreatedAt, e.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert email notification: %w", database.Translate(err))
	}
	return nil
}

func (s *PostgresStore) UpdateEmail(ctx context.Context, e *models.Email) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.email_notification
		SET transaction_id = $2, message_ids = $3, status = $4, updated_at = $5
		WHERE id = $1
	`, e.ID, e.TransactionID, pq.Array(nonNil(e.MessageIDs)), string(e.Status), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update email notification: %w", database.Translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// nonNil keeps pq from binding a nil slice as NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const emailColumns = `id, template_name, recipients, transaction_id, message_ids, status, created_at, updated_at`

func scanEmail(row interface{ Scan(...any) error }) (models.Email, error) {
	var (
		e      models.Email
		status string
	)
	err := row.Scan(&e.ID, &e.TemplateName, pq.Array(&e.Recipients), &e.TransactionID, pq.Array(&e.MessageIDs), &status, &e.CreatedAt, &e.UpdatedAt)
	e.Status = models.EmailStatus(status)
	return e, err
}

func (s *PostgresStore) FindEmail(ctx context.Context, emailID uuid.UUID) (*models.Email, error) {
	e, err := scanEmail(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM erc.email_notification WHERE id = $1`, emailID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find email notification: %w", database.Translate(err))
	}
	return &e, nil
}

func (s *PostgresStore) ListEmailsByStatus(ctx context.Context, status models.EmailStatus, limit int) ([]models.Email, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+emailColumns+` FROM erc.email_notification WHERE status = $1 ORDER BY created_at LIMIT NULLIF($2, 0)`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list email notifications: %w", database.Translate(err))
	}
	defer rows.Close()
	var out []models.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email notification: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
