package userdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Person is a stable participant identity. The ID comes from the identity
// provider; the name is upserted last-write-wins on every action.
type Person struct {
	bun.BaseModel `bun:"table:people,alias:p"`

	ID        int64     `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
