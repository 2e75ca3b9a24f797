// Package store persists registration aggregates.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bciers/internal/platform/database"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
)

// PostgresStore reads and writes the erc registration tables. Every query
// runs on the transaction in ctx when there is one, so row-level security
// applies.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.Q(ctx, s.db)
}

// NextSequence increments and returns the counter for scope.
func (s *PostgresStore) NextSequence(ctx context.Context, scope string) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO erc.id_counter (scope, last_value) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET last_value = erc.id_counter.last_value + 1
		RETURNING last_value
	`, scope).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", scope, database.Translate(err))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return err
}

func writeErr(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	return fmt.Errorf("%s: %w", op, database.Translate(err))
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
