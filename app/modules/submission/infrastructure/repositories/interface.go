package submissiondb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for submission and file persistence.
type Repository interface {
	// Upsert creates a submission or refreshes its submitted_at timestamp.
	Upsert(ctx context.Context, db bun.IDB, sub *Submission) error

	// Get retrieves one submission.
	Get(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*Submission, error)

	// GetByPosition retrieves the submission occupying a display slot.
	GetByPosition(ctx context.Context, db bun.IDB, roundNum int64, position int) (*Submission, error)

	// ListByRound returns a round's submissions ordered by position
	// (unpositioned submissions last, by author id).
	ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Submission, error)

	// CountByRound counts a round's submissions.
	CountByRound(ctx context.Context, db bun.IDB, roundNum int64) (int, error)

	// Delete removes a submission row.
	Delete(ctx context.Context, db bun.IDB, roundNum, authorID int64) error

	// UpdatePositions applies a batch of position/persona assignments.
	UpdatePositions(ctx context.Context, db bun.IDB, roundNum int64, assignments []PositionAssignment) error

	// ClearPositions nulls out every position in a round.
	ClearPositions(ctx context.Context, db bun.IDB, roundNum int64) error

	// SetFinishedGuessing flips the finished flag and reports whether every
	// submission in the round now has it set.
	SetFinishedGuessing(ctx context.Context, db bun.IDB, roundNum, authorID int64, finished bool) (allDone bool, err error)

	// ListPersonas returns the persona tokens issued for a round.
	ListPersonas(ctx context.Context, db bun.IDB, roundNum int64) ([]string, error)

	// DeleteFiles removes an author's file set for a round.
	DeleteFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) error

	// InsertFiles inserts a batch of files.
	InsertFiles(ctx context.Context, db bun.IDB, files []*File) error

	// ListFiles returns an author's files for a round, ordered by name.
	ListFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) ([]File, error)

	// ListRoundFiles returns every file of a round, optionally restricted to
	// one author (writing-stage gating).
	ListRoundFiles(ctx context.Context, db bun.IDB, roundNum int64, onlyAuthor *int64) ([]File, error)

	// UpdateFileLang sets a file's display tag and clears its display cache.
	UpdateFileLang(ctx context.Context, db bun.IDB, roundNum, authorID int64, name string, lang *string) error
}
