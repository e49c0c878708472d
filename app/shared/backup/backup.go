// Package backup is the operational safety net taken at the writing→guessing
// transition: a durable copy of the store. It is best effort and never
// correctness-critical; callers log failures and move on.
package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner produces a durable backup copy of the store for a round.
type Runner interface {
	Backup(ctx context.Context, roundNum int64) error
}

// PgDump shells out to pg_dump and writes backups/<round>.sql.
type PgDump struct {
	DSN string
	Dir string
}

func (p *PgDump) Backup(ctx context.Context, roundNum int64) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}
	out := filepath.Join(p.Dir, fmt.Sprintf("%d.sql", roundNum))
	cmd := exec.CommandContext(ctx, "pg_dump", "--dbname", p.DSN, "--file", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump failed: %w: %s", err, output)
	}
	return nil
}

// Noop skips backups. Used in tests and when no backup dir is configured.
type Noop struct{}

func (Noop) Backup(context.Context, int64) error { return nil }
