package userdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for person persistence.
type Repository interface {
	// Upsert creates or renames a person. Last write wins.
	Upsert(ctx context.Context, db bun.IDB, person *Person) error

	// GetByID retrieves a person by id.
	GetByID(ctx context.Context, db bun.IDB, id int64) (*Person, error)

	// GetByName retrieves a person by display name.
	GetByName(ctx context.Context, db bun.IDB, name string) (*Person, error)

	// GetNames resolves a set of ids to display names.
	GetNames(ctx context.Context, db bun.IDB, ids []int64) (map[int64]string, error)
}
