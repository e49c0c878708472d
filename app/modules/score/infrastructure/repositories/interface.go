package scoredb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for score, tiebreak and target persistence.
type Repository interface {
	// InsertScores persists a round's computed scores.
	InsertScores(ctx context.Context, db bun.IDB, scores []*Score) error

	// ListByRound returns a round's scores ordered by rank.
	ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Score, error)

	// ListByRounds returns all scores for the given round numbers.
	ListByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]Score, error)

	// InsertTiebreaks persists rank overrides.
	InsertTiebreaks(ctx context.Context, db bun.IDB, tiebreaks []*Tiebreak) error

	// ListTiebreaksByRounds returns rank overrides for the given rounds.
	ListTiebreaksByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]Tiebreak, error)

	// SetTarget records an impersonation target.
	SetTarget(ctx context.Context, db bun.IDB, target *Target) error

	// ListTargets returns a round's impersonation targets.
	ListTargets(ctx context.Context, db bun.IDB, roundNum int64) ([]Target, error)
}
