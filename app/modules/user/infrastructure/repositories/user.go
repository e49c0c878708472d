package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a person is not found.
var ErrNotFound = errors.New("person not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new person repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Upsert creates or renames a person.
func (r *Impl) Upsert(ctx context.Context, db bun.IDB, person *Person) error {
	db = r.resolveDB(db)
	person.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(person).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert person: %w", err)
	}
	return nil
}

// GetByID retrieves a person by id.
func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id int64) (*Person, error) {
	db = r.resolveDB(db)
	person := new(Person)
	err := db.NewSelect().
		Model(person).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

// GetByName retrieves a person by display name.
func (r *Impl) GetByName(ctx context.Context, db bun.IDB, name string) (*Person, error) {
	db = r.resolveDB(db)
	person := new(Person)
	err := db.NewSelect().
		Model(person).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get person by name: %w", err)
	}
	return person, nil
}

// GetNames resolves a set of ids to display names.
func (r *Impl) GetNames(ctx context.Context, db bun.IDB, ids []int64) (map[int64]string, error) {
	db = r.resolveDB(db)
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	var people []Person
	err := db.NewSelect().
		Model(&people).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get names: %w", err)
	}
	names := make(map[int64]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}
	return names, nil
}
