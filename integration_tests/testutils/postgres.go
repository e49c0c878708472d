// Package testutils starts throwaway Postgres containers for integration
// tests and brings them to the current schema.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"

	commentmigrations "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories/migrations"
	guessmigrations "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories/migrations"
	roundmigrations "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories/migrations"
	scoremigrations "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories/migrations"
	submissionmigrations "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories/migrations"
	usermigrations "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories/migrations"
)

// SetupTestDB starts a Postgres container, runs every module migration in
// dependency order and returns a connected bun handle. Cleanup is registered
// on the test.
func SetupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	const (
		dbName   = "testdb"
		user     = "testuser"
		password = "testpass"
	)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx",
				func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
						user, password, host, port.Port(), dbName)
				},
			).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { db.Close() })

	// Same foreign-key order as cmd/bun.
	for _, migrations := range []*migrate.Migrations{
		usermigrations.Migrations,
		roundmigrations.Migrations,
		submissionmigrations.Migrations,
		guessmigrations.Migrations,
		scoremigrations.Migrations,
		commentmigrations.Migrations,
	} {
		migrator := migrate.NewMigrator(db, migrations)
		if err := migrator.Init(ctx); err != nil {
			t.Fatalf("failed to init migrations: %v", err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	return db
}
