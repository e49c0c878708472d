package commentmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS comments (
				id BIGSERIAL PRIMARY KEY,
				round_num BIGINT NOT NULL REFERENCES rounds(num),
				author_id BIGINT NOT NULL REFERENCES people(id),
				content TEXT NOT NULL,
				reply BIGINT REFERENCES comments(id) ON DELETE SET NULL,
				persona TEXT NOT NULL DEFAULT '',
				og_persona TEXT,
				posted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				edited_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_comments_round ON comments (round_num, posted_at);
		`); err != nil {
			return fmt.Errorf("failed to create comments table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS comments;`); err != nil {
			return fmt.Errorf("failed to drop comments table: %w", err)
		}
		return nil
	})
}
