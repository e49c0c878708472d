package guessdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for guess and like persistence.
type Repository interface {
	// DeleteByGuesser removes a guesser's whole guess set for a round.
	DeleteByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) error

	// Insert inserts a batch of guesses.
	Insert(ctx context.Context, db bun.IDB, guesses []*Guess) error

	// ListByRound returns every guess in a round.
	ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Guess, error)

	// ListByGuesser returns one player's guesses for a round.
	ListByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) ([]Guess, error)

	// DeleteByActual drops every guess whose actual author was disqualified.
	DeleteByActual(ctx context.Context, db bun.IDB, roundNum, actual int64) error

	// ToggleLike flips a like and reports whether it is now set.
	ToggleLike(ctx context.Context, db bun.IDB, roundNum, playerID, liked int64) (bool, error)

	// CountLikes counts likes received by an author in a round.
	CountLikes(ctx context.Context, db bun.IDB, roundNum, liked int64) (int, error)

	// CountDistinctLikers counts how many distinct players liked anything in a
	// round.
	CountDistinctLikers(ctx context.Context, db bun.IDB, roundNum int64) (int, error)

	// LikesReceived sums likes received per author across the inclusive round
	// range.
	LikesReceived(ctx context.Context, db bun.IDB, from, to int64) (map[int64]int, error)
}
