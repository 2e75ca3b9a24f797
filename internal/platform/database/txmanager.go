package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/tx"
	"bciers/pkg/requestcontext"
)

const defaultTxTimeout = 10 * time.Second

// TxManager runs functions inside a transaction. When the context carries an
// authenticated user, the transaction switches to that user's database role
// and exposes the user GUID to policies through the my.guid setting.
type TxManager struct {
	db           *sql.DB
	timeout      time.Duration
	applyRoles   bool
	allowedRoles map[string]struct{}
	logger       *slog.Logger
}

type TxOption func(*TxManager)

func WithTimeout(d time.Duration) TxOption {
	return func(m *TxManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithAllowedRoles restricts the roles SET LOCAL ROLE may switch to.
func WithAllowedRoles(roles ...string) TxOption {
	return func(m *TxManager) {
		for _, r := range roles {
			m.allowedRoles[r] = struct{}{}
		}
	}
}

// WithoutRoleSwitch keeps the connection role and only sets my.guid.
func WithoutRoleSwitch() TxOption {
	return func(m *TxManager) {
		m.applyRoles = false
	}
}

func WithLogger(logger *slog.Logger) TxOption {
	return func(m *TxManager) {
		m.logger = logger
	}
}

func NewTxManager(db *sql.DB, opts ...TxOption) *TxManager {
	m := &TxManager{
		db:           db,
		timeout:      defaultTxTimeout,
		applyRoles:   true,
		allowedRoles: map[string]struct{}{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunInTx begins a transaction, applies the session, runs fn and commits.
// Nested calls join the outer transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := m.applySession(ctx, sqlTx); err != nil {
		return err
	}
	hookCtx, hooks := tx.WithCommitHooks(tx.WithTx(ctx, sqlTx))
	if err := fn(hookCtx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return Translate(fmt.Errorf("commit transaction: %w", err))
	}
	hooks.Run(context.WithoutCancel(ctx))
	return nil
}

func (m *TxManager) applySession(ctx context.Context, sqlTx *sql.Tx) error {
	guid := requestcontext.UserGUID(ctx)
	if guid.IsNil() {
		return nil
	}
	if _, err := sqlTx.ExecContext(ctx, `SELECT set_config('my.guid', $1, true)`, guid.String()); err != nil {
		return fmt.Errorf("set session guid: %w", err)
	}
	role := requestcontext.AppRole(ctx)
	if !m.applyRoles || role == "" {
		return nil
	}
	if _, ok := m.allowedRoles[role]; !ok {
		m.logger.WarnContext(ctx, "refusing unknown database role", "role", role)
		return dErrors.New(dErrors.CodeForbidden, "unknown application role")
	}
	if _, err := sqlTx.ExecContext(ctx, "SET LOCAL ROLE "+pq.QuoteIdentifier(role)); err != nil {
		return fmt.Errorf("set session role: %w", err)
	}
	return nil
}
