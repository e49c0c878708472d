package commentdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Comment is one message on a round's discussion thread. While the round is
// in its guessing stage the author posts behind a persona token; an empty
// Persona means the comment shows the author's real identity. OgPersona keeps
// the original token after the round-end reveal so old threads stay readable.
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	RoundNum  int64      `bun:"round_num,notnull" json:"round_num"`
	AuthorID  int64      `bun:"author_id,notnull" json:"author_id"`
	Content   string     `bun:"content,notnull" json:"content"`
	Reply     *int64     `bun:"reply" json:"reply,omitempty"`
	Persona   string     `bun:"persona,notnull,default:''" json:"persona,omitempty"`
	OgPersona *string    `bun:"og_persona" json:"og_persona,omitempty"`
	PostedAt  time.Time  `bun:"posted_at,notnull" json:"posted_at"`
	EditedAt  *time.Time `bun:"edited_at" json:"edited_at,omitempty"`
}
