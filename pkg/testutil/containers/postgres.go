//go:build integration

// Package containers starts shared infrastructure backends for integration
// tests. Each backend starts once per test binary and is reused by every
// suite; Ryuk reaps the containers when the process exits. Tests isolate by
// generating their own IDs rather than flushing state between runs.
package containers

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"attest/internal/platform/postgres"
)

var pg struct {
	once sync.Once
	dsn  string
	err  error
}

// PostgresDSN starts the shared Postgres container on first use, applies the
// schema migrations and returns its connection string.
func PostgresDSN(t *testing.T) string {
	t.Helper()

	pg.once.Do(func() {
		ctx := context.Background()

		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("attest"),
			tcpostgres.WithUsername("attest"),
			tcpostgres.WithPassword("attest"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			pg.err = err
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pg.err = err
			return
		}

		db, err := sql.Open("pgx", dsn)
		if err != nil {
			pg.err = err
			return
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
			pg.err = err
			return
		}
		pg.dsn = dsn
	})
	if pg.err != nil {
		t.Fatalf("failed to start postgres container: %v", pg.err)
	}
	return pg.dsn
}

// OpenPostgres returns a connection pool against the shared migrated
// container. The pool is closed when the test finishes.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", PostgresDSN(t))
	if err != nil {
		t.Fatalf("failed to open postgres pool: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(context.Background()); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}
	return db
}
