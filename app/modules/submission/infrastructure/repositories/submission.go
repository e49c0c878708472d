package submissiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a submission or file is not found.
var ErrNotFound = errors.New("submission not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new submission repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Upsert creates a submission or refreshes its submitted_at timestamp.
func (r *Impl) Upsert(ctx context.Context, db bun.IDB, sub *Submission) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(sub).
		On("CONFLICT (round_num, author_id) DO UPDATE").
		Set("submitted_at = EXCLUDED.submitted_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

// Get retrieves one submission.
func (r *Impl) Get(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*Submission, error) {
	db = r.resolveDB(db)
	sub := new(Submission)
	err := db.NewSelect().
		Model(sub).
		Where("round_num = ?", roundNum).
		Where("author_id = ?", authorID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// GetByPosition retrieves the submission occupying a display slot.
func (r *Impl) GetByPosition(ctx context.Context, db bun.IDB, roundNum int64, position int) (*Submission, error) {
	db = r.resolveDB(db)
	sub := new(Submission)
	err := db.NewSelect().
		Model(sub).
		Where("round_num = ?", roundNum).
		Where("position = ?", position).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission by position: %w", err)
	}
	return sub, nil
}

// ListByRound returns a round's submissions ordered by position.
func (r *Impl) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Submission, error) {
	db = r.resolveDB(db)
	var subs []Submission
	err := db.NewSelect().
		Model(&subs).
		Where("round_num = ?", roundNum).
		OrderExpr("position ASC NULLS LAST, author_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// CountByRound counts a round's submissions.
func (r *Impl) CountByRound(ctx context.Context, db bun.IDB, roundNum int64) (int, error) {
	db = r.resolveDB(db)
	count, err := db.NewSelect().
		Model((*Submission)(nil)).
		Where("round_num = ?", roundNum).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// Delete removes a submission row.
func (r *Impl) Delete(ctx context.Context, db bun.IDB, roundNum, authorID int64) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*Submission)(nil)).
		Where("round_num = ?", roundNum).
		Where("author_id = ?", authorID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
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

// UpdatePositions applies a batch of position/persona assignments.
func (r *Impl) UpdatePositions(ctx context.Context, db bun.IDB, roundNum int64, assignments []PositionAssignment) error {
	db = r.resolveDB(db)
	for _, a := range assignments {
		_, err := db.NewUpdate().
			Model((*Submission)(nil)).
			Set("position = ?", a.Position).
			Set("persona = ?", a.Persona).
			Where("round_num = ?", roundNum).
			Where("author_id = ?", a.AuthorID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to assign position %d: %w", a.Position, err)
		}
	}
	return nil
}

// ClearPositions nulls out every position in a round.
func (r *Impl) ClearPositions(ctx context.Context, db bun.IDB, roundNum int64) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Submission)(nil)).
		Set("position = NULL").
		Where("round_num = ?", roundNum).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}
	return nil
}

// SetFinishedGuessing flips the finished flag and reports whether every
// submission in the round now has it set.
func (r *Impl) SetFinishedGuessing(ctx context.Context, db bun.IDB, roundNum, authorID int64, finished bool) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Submission)(nil)).
		Set("finished_guessing = ?", finished).
		Where("round_num = ?", roundNum).
		Where("author_id = ?", authorID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to set finished flag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, ErrNotFound
	}
	remaining, err := db.NewSelect().
		Model((*Submission)(nil)).
		Where("round_num = ?", roundNum).
		Where("NOT finished_guessing").
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count unfinished submissions: %w", err)
	}
	return remaining == 0, nil
}

// ListPersonas returns the persona tokens issued for a round.
func (r *Impl) ListPersonas(ctx context.Context, db bun.IDB, roundNum int64) ([]string, error) {
	db = r.resolveDB(db)
	var personas []string
	err := db.NewSelect().
		Model((*Submission)(nil)).
		Column("persona").
		Where("round_num = ?", roundNum).
		Where("persona IS NOT NULL").
		Scan(ctx, &personas)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	return personas, nil
}

// DeleteFiles removes an author's file set for a round.
func (r *Impl) DeleteFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*File)(nil)).
		Where("round_num = ?", roundNum).
		Where("author_id = ?", authorID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}

// InsertFiles inserts a batch of files.
func (r *Impl) InsertFiles(ctx context.Context, db bun.IDB, files []*File) error {
	db = r.resolveDB(db)
	if len(files) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&files).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert files: %w", err)
	}
	return nil
}

// ListFiles returns an author's files for a round, ordered by name.
func (r *Impl) ListFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) ([]File, error) {
	db = r.resolveDB(db)
	var files []File
	err := db.NewSelect().
		Model(&files).
		Where("round_num = ?", roundNum).
		Where("author_id = ?", authorID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// ListRoundFiles returns every file of a round, optionally restricted to one
// author.
func (r *Impl) ListRoundFiles(ctx context.Context, db bun.IDB, roundNum int64, onlyAuthor *int64) ([]File, error) {
	db = r.resolveDB(db)
	q := db.NewSelect().
		Model((*File)(nil)).
		Where("round_num = ?", roundNum).
		Order("author_id ASC", "name ASC")
	if onlyAuthor != nil {
		q = q.Where("author_id = ?", *onlyAuthor)
	}
	var files []File
	if err := q.Scan(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to list round files: %w", err)
	}
	return files, nil
}

// UpdateFileLang sets a file's display tag and clears its display cache.
func (r *Impl) UpdateFileLang(ctx context.Context, db bun.IDB, roundNum, authorID int64, name string, lang *string) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*File)(nil)).
		Set("lang = ?", lang).
		Set("hl_content = NULL").
		Where("round_num = ?", roundNum).
		Where("author_id = ?", authorID).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update file lang: %w", err)
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
