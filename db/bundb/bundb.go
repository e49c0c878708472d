// Package bundb owns the Postgres connection pool and hands out the
// per-module repositories bound to it.
package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	commentdb "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories"
	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	userdb "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories"
	"github.com/esolangs/codeguessing/config"
)

// DBService bundles the shared pool and the module repositories.
type DBService struct {
	UserDB       userdb.Repository
	RoundDB      rounddb.Repository
	SubmissionDB submissiondb.Repository
	GuessDB      guessdb.Repository
	ScoreDB      scoredb.Repository
	CommentDB    commentdb.Repository

	db *bun.DB
}

// GetDB returns the underlying connection pool.
func (s *DBService) GetDB() *bun.DB {
	return s.db
}

// NewBunDBService opens the pool, verifies connectivity and wires the
// repositories.
func NewBunDBService(ctx context.Context, cfg config.PostgresConfig) (*DBService, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel(
		(*userdb.Person)(nil),
		(*rounddb.Round)(nil),
		(*submissiondb.Submission)(nil),
		(*submissiondb.File)(nil),
		(*guessdb.Guess)(nil),
		(*guessdb.Like)(nil),
		(*scoredb.Score)(nil),
		(*scoredb.Tiebreak)(nil),
		(*scoredb.Target)(nil),
		(*commentdb.Comment)(nil),
	)

	return &DBService{
		UserDB:       userdb.NewRepository(db),
		RoundDB:      rounddb.NewRepository(db),
		SubmissionDB: submissiondb.NewRepository(db),
		GuessDB:      guessdb.NewRepository(db),
		ScoreDB:      scoredb.NewRepository(db),
		CommentDB:    commentdb.NewRepository(db),
		db:           db,
	}, nil
}
