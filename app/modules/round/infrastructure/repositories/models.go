package rounddb

import (
	"time"

	"github.com/uptrace/bun"
)

// Stage is the closed set of round stages. Only the round service transitions
// it; every other component treats it as a read-only fact.
type Stage string

const (
	StagePending   Stage = "PENDING"
	StageWriting   Stage = "WRITING"
	StageGuessing  Stage = "GUESSING"
	StageCompleted Stage = "COMPLETED"
)

// Active reports whether a round in this stage counts against the
// one-round-in-flight invariant.
func (s Stage) Active() bool {
	return s != StageCompleted
}

// Round is a numbered unit of play.
type Round struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	Num       int64      `bun:"num,pk,autoincrement" json:"num"`
	Stage     Stage      `bun:"stage,notnull" json:"stage"`
	Spec      string     `bun:"spec,nullzero" json:"spec,omitempty"`
	StartedAt time.Time  `bun:"started_at,nullzero" json:"started_at"`
	Stage2At  *time.Time `bun:"stage2_at" json:"stage2_at,omitempty"`
	EndedAt   *time.Time `bun:"ended_at" json:"ended_at,omitempty"`
	// Deadlines are advisory: nothing transitions automatically when one
	// passes. They exist so extensions can be announced and displayed.
	WritingDeadline  *time.Time `bun:"writing_deadline" json:"writing_deadline,omitempty"`
	GuessingDeadline *time.Time `bun:"guessing_deadline" json:"guessing_deadline,omitempty"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
