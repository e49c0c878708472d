// Package userservice keeps the people table current. Identity comes from the
// OAuth provider; this service only mirrors (id, display name) pairs.
package userservice

import (
	"context"
	"errors"
	"strconv"

	"github.com/uptrace/bun"

	userdb "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// Service owns person records.
type Service struct {
	userRepo userdb.Repository
	db       *bun.DB
	tel      operation.Telemetry
}

// NewService creates a user service.
func NewService(userRepo userdb.Repository, db *bun.DB, tel operation.Telemetry) *Service {
	return &Service{userRepo: userRepo, db: db, tel: tel}
}

// Upsert records or renames a person. Called on every login so display names
// track the provider.
func (s *Service) Upsert(ctx context.Context, id int64, name string) (results.OperationResult[userdb.Person, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "UpsertPerson", strconv.FormatInt(id, 10),
		func(ctx context.Context) (results.OperationResult[userdb.Person, error], error) {
			if name == "" {
				return results.FailureResult[userdb.Person](error(shared.NewValidationError("display name cannot be empty"))), nil
			}
			person := &userdb.Person{ID: id, Name: name}
			if err := s.userRepo.Upsert(ctx, nil, person); err != nil {
				return results.OperationResult[userdb.Person, error]{}, err
			}
			return results.SuccessResult[userdb.Person, error](*person), nil
		})
}

// Get returns one person.
func (s *Service) Get(ctx context.Context, id int64) (results.OperationResult[userdb.Person, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "GetPerson", strconv.FormatInt(id, 10),
		func(ctx context.Context) (results.OperationResult[userdb.Person, error], error) {
			person, err := s.userRepo.GetByID(ctx, nil, id)
			if err != nil {
				if errors.Is(err, userdb.ErrNotFound) {
					return results.FailureResult[userdb.Person](error(shared.NewNotFoundError("person %d does not exist", id))), nil
				}
				return results.OperationResult[userdb.Person, error]{}, err
			}
			return results.SuccessResult[userdb.Person, error](*person), nil
		})
}
