//go:build integration

package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bciers/internal/rls"
	"bciers/pkg/testutil/containers"
)

func countPolicies(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM pg_policies WHERE schemaname = $1`, rls.Schema).Scan(&n))
	return n
}

func TestPoliciesApplyToMigratedSchema(t *testing.T) {
	ctx := context.Background()
	db := containers.NewPostgres(t)
	reg := policies()

	require.NoError(t, rls.Apply(ctx, db, reg))
	applied := countPolicies(t, db)
	assert.Positive(t, applied)

	require.NoError(t, rls.Apply(ctx, db, reg), "apply is repeatable")
	assert.Equal(t, applied, countPolicies(t, db))

	require.NoError(t, rls.Reset(ctx, db, reg))
	assert.Zero(t, countPolicies(t, db))
}
