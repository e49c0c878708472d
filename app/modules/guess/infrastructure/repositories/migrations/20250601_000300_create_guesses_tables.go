package guessmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS guesses (
					round_num BIGINT NOT NULL REFERENCES rounds(num),
					player_id BIGINT NOT NULL REFERENCES people(id),
					guess BIGINT NOT NULL,
					actual BIGINT NOT NULL,
					locked BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (round_num, player_id, actual)
				);
			`); err != nil {
				return fmt.Errorf("failed to create guesses table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS likes (
					round_num BIGINT NOT NULL REFERENCES rounds(num),
					player_id BIGINT NOT NULL REFERENCES people(id),
					liked BIGINT NOT NULL,
					PRIMARY KEY (round_num, player_id, liked)
				);
			`); err != nil {
				return fmt.Errorf("failed to create likes table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS likes; DROP TABLE IF EXISTS guesses;`); err != nil {
			return fmt.Errorf("failed to drop guesses tables: %w", err)
		}
		return nil
	})
}
