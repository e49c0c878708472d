package commentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a comment is not found.
var ErrNotFound = errors.New("comment not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new comment repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Insert stores a comment and fills in its id.
func (r *Impl) Insert(ctx context.Context, db bun.IDB, comment *Comment) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(comment).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves one comment.
func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id int64) (*Comment, error) {
	db = r.resolveDB(db)
	comment := new(Comment)
	err := db.NewSelect().
		Model(comment).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// ListByRound returns a round's comments in posting order.
func (r *Impl) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Comment, error) {
	db = r.resolveDB(db)
	var comments []Comment
	err := db.NewSelect().
		Model(&comments).
		Where("round_num = ?", roundNum).
		Order("posted_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// UpdateContent replaces a comment's content, refreshes the speaking persona
// and its original-persona record, and stamps edited_at.
func (r *Impl) UpdateContent(ctx context.Context, db bun.IDB, id int64, content, personaTok string, ogPersona *string) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Comment)(nil)).
		Set("content = ?", content).
		Set("persona = ?", personaTok).
		Set("og_persona = ?", ogPersona).
		Set("edited_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a comment.
func (r *Impl) Delete(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*Comment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeanonymizeRound strips persona masks from a round's comments. The original
// token survives in og_persona; COALESCE keeps it stable if the reveal runs
// twice.
func (r *Impl) DeanonymizeRound(ctx context.Context, db bun.IDB, roundNum int64) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Comment)(nil)).
		Set("og_persona = COALESCE(og_persona, NULLIF(persona, ''))").
		Set("persona = ''").
		Where("round_num = ?", roundNum).
		Where("persona <> ''").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deanonymize comments: %w", err)
	}
	return nil
}
