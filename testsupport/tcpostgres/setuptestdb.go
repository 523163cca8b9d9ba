package tcpostgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"backend-mapssaver/internal/config"
	"backend-mapssaver/internal/db"
)

// SetupTestDb returns a pool on a migrated database inside the shared test
// container. The pool is closed when tb ends.
func SetupTestDb(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	ctx := context.Background()

	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		tb.Fatalf("port: %v", err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		WithName("mapssaver-test"),
	)
	if err != nil {
		tb.Fatalf("postgres container: %v", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		tb.Fatalf("mapped port: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		tb.Fatalf("container host: %v", err)
	}
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres?sslmode=disable", host, mapped.Port())

	log := zaptest.NewLogger(tb)
	if err := db.Migrate(dbURL, log); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	pool, err := db.ConnectPostgres(config.Config{PostgresURL: dbURL}, log)
	if err != nil {
		tb.Fatalf("connect: %v", err)
	}
	tb.Cleanup(pool.Close)
	return pool
}

// ClearTables empties every application table.
func ClearTables(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE users, refresh_tokens, trips, tracks, routes, points CASCADE"); err != nil {
		tb.Fatalf("truncate: %v", err)
	}
}
