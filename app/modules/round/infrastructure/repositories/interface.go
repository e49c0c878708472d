package rounddb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for round persistence.
type Repository interface {
	// Insert inserts a new round and fills in the generated number.
	Insert(ctx context.Context, db bun.IDB, round *Round) error

	// GetByNum retrieves a round by number.
	GetByNum(ctx context.Context, db bun.IDB, num int64) (*Round, error)

	// GetActive retrieves the single non-completed round, if any.
	GetActive(ctx context.Context, db bun.IDB) (*Round, error)

	// Update writes back a round's stage, spec and timestamps.
	Update(ctx context.Context, db bun.IDB, round *Round) error

	// ListCompletedNums returns the numbers of completed rounds up to and
	// including upTo, ascending.
	ListCompletedNums(ctx context.Context, db bun.IDB, upTo int64) ([]int64, error)

	// ListAll returns every round, newest first.
	ListAll(ctx context.Context, db bun.IDB) ([]Round, error)
}
