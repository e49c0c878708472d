package guessdb

import "github.com/uptrace/bun"

// Guess is one guesser's claim about one submission's author. The actual
// author is denormalized at insert time; guesses never key on position, so a
// later renumbering cannot change their meaning.
type Guess struct {
	bun.BaseModel `bun:"table:guesses,alias:g"`

	RoundNum int64 `bun:"round_num,pk" json:"round_num"`
	PlayerID int64 `bun:"player_id,pk" json:"player_id"`
	Guess    int64 `bun:"guess,notnull" json:"guess"`
	Actual   int64 `bun:"actual,pk" json:"actual"`
	Locked   bool  `bun:"locked,notnull,default:false" json:"locked"`
}

// Like is a toggled (round, liker, liked-author) relation. Popularity
// statistic only; no scoring effect.
type Like struct {
	bun.BaseModel `bun:"table:likes,alias:l"`

	RoundNum int64 `bun:"round_num,pk"`
	PlayerID int64 `bun:"player_id,pk"`
	Liked    int64 `bun:"liked,pk"`
}

// LikeCount pairs an author with the number of likes they received.
type LikeCount struct {
	Liked int64 `bun:"liked"`
	Count int   `bun:"count"`
}
