package submissionmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS submissions (
					round_num BIGINT NOT NULL REFERENCES rounds(num),
					author_id BIGINT NOT NULL REFERENCES people(id),
					submitted_at TIMESTAMPTZ NOT NULL,
					position INT,
					persona TEXT,
					finished_guessing BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (round_num, author_id)
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_round_position
					ON submissions (round_num, position) WHERE position IS NOT NULL;
			`); err != nil {
				return fmt.Errorf("failed to create submissions table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS files (
					round_num BIGINT NOT NULL,
					author_id BIGINT NOT NULL,
					name TEXT NOT NULL,
					content BYTEA NOT NULL,
					lang TEXT,
					hl_content TEXT,
					PRIMARY KEY (round_num, author_id, name),
					FOREIGN KEY (round_num, author_id)
						REFERENCES submissions (round_num, author_id) ON DELETE CASCADE
				);
			`); err != nil {
				return fmt.Errorf("failed to create files table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS files; DROP TABLE IF EXISTS submissions;`); err != nil {
			return fmt.Errorf("failed to drop submissions tables: %w", err)
		}
		return nil
	})
}
