//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"bciers/internal/platform/config"
	"bciers/internal/platform/database"
	"bciers/internal/platform/migrations"
)

// NewPostgres starts PostgreSQL, applies every migration and returns the
// pool. The pool connects as the container superuser, so row-level
// security does not filter its queries.
func NewPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("bciers"),
		tcpostgres.WithUsername("bciers"),
		tcpostgres.WithPassword("bciers"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	db, err := database.Open(ctx, config.Database{URL: dsn, MaxOpenConns: 5, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := migrations.Up(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
