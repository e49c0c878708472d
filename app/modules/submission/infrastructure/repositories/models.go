package submissiondb

import (
	"time"

	"github.com/uptrace/bun"
)

// Submission ties one person to one round as an author. Position and persona
// stay null until the writing→guessing transition assigns them.
type Submission struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	RoundNum         int64     `bun:"round_num,pk" json:"round_num"`
	AuthorID         int64     `bun:"author_id,pk" json:"author_id"`
	SubmittedAt      time.Time `bun:"submitted_at,notnull" json:"submitted_at"`
	Position         *int      `bun:"position" json:"position,omitempty"`
	Persona          *string   `bun:"persona" json:"persona,omitempty"`
	FinishedGuessing bool      `bun:"finished_guessing,notnull,default:false" json:"finished_guessing"`
}

// File is one uploaded artifact. The whole file set is deleted and recreated
// whenever the owning submission is replaced.
type File struct {
	bun.BaseModel `bun:"table:files,alias:f"`

	RoundNum  int64   `bun:"round_num,pk" json:"round_num"`
	AuthorID  int64   `bun:"author_id,pk" json:"author_id"`
	Name      string  `bun:"name,pk" json:"name"`
	Content   []byte  `bun:"content,notnull" json:"content"`
	Lang      *string `bun:"lang" json:"lang,omitempty"`
	HLContent *string `bun:"hl_content" json:"-"`
}

// PositionAssignment carries one author's new slot after a shuffle.
type PositionAssignment struct {
	AuthorID int64
	Position int
	Persona  *string
}
