package rounddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a round is not found.
var ErrNotFound = errors.New("round not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new round repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Insert inserts a new round and fills in the generated number.
func (r *Impl) Insert(ctx context.Context, db bun.IDB, round *Round) error {
	db = r.resolveDB(db)
	err := db.NewInsert().
		Model(round).
		ExcludeColumn("num").
		Returning("num").
		Scan(ctx, &round.Num)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	return nil
}

// GetByNum retrieves a round by number.
func (r *Impl) GetByNum(ctx context.Context, db bun.IDB, num int64) (*Round, error) {
	db = r.resolveDB(db)
	round := new(Round)
	err := db.NewSelect().
		Model(round).
		Where("num = ?", num).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// GetActive retrieves the single non-completed round, if any.
func (r *Impl) GetActive(ctx context.Context, db bun.IDB) (*Round, error) {
	db = r.resolveDB(db)
	round := new(Round)
	err := db.NewSelect().
		Model(round).
		Where("stage <> ?", StageCompleted).
		Order("num ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active round: %w", err)
	}
	return round, nil
}

// Update writes back a round's stage, spec and timestamps.
func (r *Impl) Update(ctx context.Context, db bun.IDB, round *Round) error {
	db = r.resolveDB(db)
	round.UpdatedAt = time.Now()
	res, err := db.NewUpdate().
		Model(round).
		Column("stage", "spec", "started_at", "stage2_at", "ended_at",
			"writing_deadline", "guessing_deadline", "updated_at").
		Where("num = ?", round.Num).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCompletedNums returns the numbers of completed rounds up to upTo.
func (r *Impl) ListCompletedNums(ctx context.Context, db bun.IDB, upTo int64) ([]int64, error) {
	db = r.resolveDB(db)
	var nums []int64
	err := db.NewSelect().
		Model((*Round)(nil)).
		Column("num").
		Where("stage = ?", StageCompleted).
		Where("num <= ?", upTo).
		Order("num ASC").
		Scan(ctx, &nums)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed rounds: %w", err)
	}
	return nums, nil
}

// ListAll returns every round, newest first.
func (r *Impl) ListAll(ctx context.Context, db bun.IDB) ([]Round, error) {
	db = r.resolveDB(db)
	var rounds []Round
	err := db.NewSelect().
		Model(&rounds).
		Order("num DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}
