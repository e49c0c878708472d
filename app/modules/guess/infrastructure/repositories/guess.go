package guessdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new guess repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// DeleteByGuesser removes a guesser's whole guess set for a round.
func (r *Impl) DeleteByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Guess)(nil)).
		Where("round_num = ?", roundNum).
		Where("player_id = ?", playerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete guesses: %w", err)
	}
	return nil
}

// Insert inserts a batch of guesses.
func (r *Impl) Insert(ctx context.Context, db bun.IDB, guesses []*Guess) error {
	db = r.resolveDB(db)
	if len(guesses) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&guesses).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert guesses: %w", err)
	}
	return nil
}

// ListByRound returns every guess in a round.
func (r *Impl) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Guess, error) {
	db = r.resolveDB(db)
	var guesses []Guess
	err := db.NewSelect().
		Model(&guesses).
		Where("round_num = ?", roundNum).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	return guesses, nil
}

// ListByGuesser returns one player's guesses for a round.
func (r *Impl) ListByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) ([]Guess, error) {
	db = r.resolveDB(db)
	var guesses []Guess
	err := db.NewSelect().
		Model(&guesses).
		Where("round_num = ?", roundNum).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses by guesser: %w", err)
	}
	return guesses, nil
}

// DeleteByActual drops every guess whose actual author was disqualified.
func (r *Impl) DeleteByActual(ctx context.Context, db bun.IDB, roundNum, actual int64) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Guess)(nil)).
		Where("round_num = ?", roundNum).
		Where("actual = ?", actual).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete guesses by actual author: %w", err)
	}
	return nil
}

// ToggleLike flips a like and reports whether it is now set.
func (r *Impl) ToggleLike(ctx context.Context, db bun.IDB, roundNum, playerID, liked int64) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*Like)(nil)).
		Where("round_num = ?", roundNum).
		Where("player_id = ?", playerID).
		Where("liked = ?", liked).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	if exists {
		_, err = db.NewDelete().
			Model((*Like)(nil)).
			Where("round_num = ?", roundNum).
			Where("player_id = ?", playerID).
			Where("liked = ?", liked).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to unlike: %w", err)
		}
		return false, nil
	}
	like := &Like{RoundNum: roundNum, PlayerID: playerID, Liked: liked}
	_, err = db.NewInsert().
		Model(like).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to like: %w", err)
	}
	return true, nil
}

// CountLikes counts likes received by an author in a round.
func (r *Impl) CountLikes(ctx context.Context, db bun.IDB, roundNum, liked int64) (int, error) {
	db = r.resolveDB(db)
	count, err := db.NewSelect().
		Model((*Like)(nil)).
		Where("round_num = ?", roundNum).
		Where("liked = ?", liked).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// CountDistinctLikers counts how many distinct players liked anything in a
// round.
func (r *Impl) CountDistinctLikers(ctx context.Context, db bun.IDB, roundNum int64) (int, error) {
	db = r.resolveDB(db)
	var count int
	err := db.NewSelect().
		Model((*Like)(nil)).
		ColumnExpr("COUNT(DISTINCT player_id)").
		Where("round_num = ?", roundNum).
		Scan(ctx, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count likers: %w", err)
	}
	return count, nil
}

// LikesReceived sums likes received per author across the inclusive round
// range.
func (r *Impl) LikesReceived(ctx context.Context, db bun.IDB, from, to int64) (map[int64]int, error) {
	db = r.resolveDB(db)
	var rows []LikeCount
	err := db.NewSelect().
		Model((*Like)(nil)).
		ColumnExpr("liked, COUNT(*) AS count").
		Where("round_num BETWEEN ? AND ?", from, to).
		GroupExpr("liked").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to sum likes: %w", err)
	}
	likes := make(map[int64]int, len(rows))
	for _, row := range rows {
		likes[row.Liked] = row.Count
	}
	return likes, nil
}
