package scoredb

import "github.com/uptrace/bun"

// Score is one author's persisted result for a completed round. Computed once
// at round completion; the leaderboard never recomputes it.
type Score struct {
	bun.BaseModel `bun:"table:scores,alias:sc"`

	RoundNum int64 `bun:"round_num,pk" json:"round_num"`
	PlayerID int64 `bun:"player_id,pk" json:"player_id"`
	Rank     int   `bun:"rank,notnull" json:"rank"`
	Total    int   `bun:"total,notnull" json:"total"`
	Plus     int   `bun:"plus,notnull" json:"plus"`
	Bonus    int   `bun:"bonus,notnull" json:"bonus"`
	Minus    int   `bun:"minus,notnull" json:"minus"`
	Won      bool  `bun:"won,notnull" json:"won"`
}

// Tiebreak is a rank override recorded separately from the computed score, so
// the raw table and the adjusted ranks can both be reconstructed.
type Tiebreak struct {
	bun.BaseModel `bun:"table:tiebreaks,alias:tb"`

	RoundNum int64 `bun:"round_num,pk"`
	PlayerID int64 `bun:"player_id,pk"`
	NewRank  int   `bun:"new_rank,notnull"`
}

// Target records the impersonation sub-game: the author's submission roleplays
// as the target person, and guesses naming the target score a bonus point.
type Target struct {
	bun.BaseModel `bun:"table:targets,alias:t"`

	RoundNum int64 `bun:"round_num,pk" json:"round_num"`
	PlayerID int64 `bun:"player_id,pk" json:"player_id"`
	Target   int64 `bun:"target,notnull" json:"target"`
}
