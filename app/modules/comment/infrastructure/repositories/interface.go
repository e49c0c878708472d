package commentdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for comment persistence.
type Repository interface {
	// Insert stores a comment and fills in its id.
	Insert(ctx context.Context, db bun.IDB, comment *Comment) error

	// GetByID retrieves one comment.
	GetByID(ctx context.Context, db bun.IDB, id int64) (*Comment, error)

	// ListByRound returns a round's comments in posting order.
	ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Comment, error)

	// UpdateContent replaces a comment's content, refreshes the speaking
	// persona and its original-persona record, and stamps edited_at.
	UpdateContent(ctx context.Context, db bun.IDB, id int64, content, personaTok string, ogPersona *string) error

	// Delete removes a comment.
	Delete(ctx context.Context, db bun.IDB, id int64) error

	// DeanonymizeRound strips persona masks from a round's comments, keeping
	// the original token in og_persona for display.
	DeanonymizeRound(ctx context.Context, db bun.IDB, roundNum int64) error
}
