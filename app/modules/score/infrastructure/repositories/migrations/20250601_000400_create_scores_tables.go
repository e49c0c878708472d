package scoremigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS scores (
					round_num BIGINT NOT NULL REFERENCES rounds(num),
					player_id BIGINT NOT NULL REFERENCES people(id),
					rank INTEGER NOT NULL,
					total INTEGER NOT NULL,
					plus INTEGER NOT NULL,
					bonus INTEGER NOT NULL,
					minus INTEGER NOT NULL,
					won BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (round_num, player_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create scores table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tiebreaks (
					round_num BIGINT NOT NULL REFERENCES rounds(num),
					player_id BIGINT NOT NULL REFERENCES people(id),
					new_rank INTEGER NOT NULL,
					PRIMARY KEY (round_num, player_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create tiebreaks table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS targets (
					round_num BIGINT NOT NULL REFERENCES rounds(num),
					player_id BIGINT NOT NULL REFERENCES people(id),
					target BIGINT NOT NULL,
					PRIMARY KEY (round_num, player_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create targets table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS targets; DROP TABLE IF EXISTS tiebreaks; DROP TABLE IF EXISTS scores;`); err != nil {
			return fmt.Errorf("failed to drop scores tables: %w", err)
		}
		return nil
	})
}
