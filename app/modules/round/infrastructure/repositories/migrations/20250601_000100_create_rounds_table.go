package roundmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// The partial unique index enforces the one-round-in-flight invariant
		// in the store itself rather than in caller queries.
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS rounds (
				num BIGSERIAL PRIMARY KEY,
				stage TEXT NOT NULL,
				spec TEXT,
				started_at TIMESTAMPTZ,
				stage2_at TIMESTAMPTZ,
				ended_at TIMESTAMPTZ,
				writing_deadline TIMESTAMPTZ,
				guessing_deadline TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_single_active
				ON rounds ((stage <> 'COMPLETED')) WHERE stage <> 'COMPLETED';
		`); err != nil {
			return fmt.Errorf("failed to create rounds table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS rounds;`); err != nil {
			return fmt.Errorf("failed to drop rounds table: %w", err)
		}
		return nil
	})
}
