package rls

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	dErrors "bciers/pkg/domain-errors"
)

// Registry collects table descriptors.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

func NewRegistry() *Registry {
	return &Registry{tables: map[string]Table{}}
}

// Register validates t and adds it. A table may only be registered once.
func (r *Registry) Register(t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := t.QualifiedName()
	if _, exists := r.tables[key]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "rls table %s already registered", key)
	}
	r.tables[key] = t
	return nil
}

// MustRegister is Register for package-level descriptor wiring.
func (r *Registry) MustRegister(tables ...Table) {
	for _, t := range tables {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Tables returns the descriptors sorted by qualified name.
func (r *Registry) Tables() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Table, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out
}

// Statements renders role setup followed by grants and policies for every table.
func (r *Registry) Statements() ([]string, error) {
	stmts := RoleStatements(Schema, AllRoles())
	for _, t := range r.Tables() {
		grants, err := GrantStatements(t)
		if err != nil {
			return nil, err
		}
		policies, err := PolicyStatements(t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, grants...)
		stmts = append(stmts, policies...)
	}
	return stmts, nil
}

// ResetStatements renders the teardown of every registered table.
func (r *Registry) ResetStatements() []string {
	var stmts []string
	for _, t := range r.Tables() {
		stmts = append(stmts, ResetStatements(t)...)
	}
	return stmts
}

// Script joins Statements into one SQL script.
func (r *Registry) Script() (string, error) {
	stmts, err := r.Statements()
	if err != nil {
		return "", err
	}
	return joinScript(stmts), nil
}

func joinScript(stmts []string) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s)
		b.WriteString(";\n")
	}
	return b.String()
}

// Apply executes the registry's statements in a single transaction.
func Apply(ctx context.Context, db *sql.DB, r *Registry) error {
	stmts, err := r.Statements()
	if err != nil {
		return err
	}
	return execAll(ctx, db, stmts)
}

// Reset executes the registry's teardown in a single transaction.
func Reset(ctx context.Context, db *sql.DB, r *Registry) error {
	return execAll(ctx, db, r.ResetStatements())
}

func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rls transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("rls statement %q: %w", s, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rls transaction: %w", err)
	}
	return nil
}
