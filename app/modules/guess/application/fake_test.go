package guessservice

import (
	"context"

	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
)

type fakeGuessRepo struct {
	guessdb.Repository

	DeleteByGuesserFunc func(ctx context.Context, db bun.IDB, roundNum, playerID int64) error
	InsertFunc          func(ctx context.Context, db bun.IDB, guesses []*guessdb.Guess) error
	ListByGuesserFunc   func(ctx context.Context, db bun.IDB, roundNum, playerID int64) ([]guessdb.Guess, error)
	ToggleLikeFunc      func(ctx context.Context, db bun.IDB, roundNum, playerID, liked int64) (bool, error)
}

func (f *fakeGuessRepo) DeleteByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) error {
	if f.DeleteByGuesserFunc != nil {
		return f.DeleteByGuesserFunc(ctx, db, roundNum, playerID)
	}
	return nil
}

func (f *fakeGuessRepo) Insert(ctx context.Context, db bun.IDB, guesses []*guessdb.Guess) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, guesses)
	}
	return nil
}

func (f *fakeGuessRepo) ListByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) ([]guessdb.Guess, error) {
	if f.ListByGuesserFunc != nil {
		return f.ListByGuesserFunc(ctx, db, roundNum, playerID)
	}
	return nil, nil
}

func (f *fakeGuessRepo) ToggleLike(ctx context.Context, db bun.IDB, roundNum, playerID, liked int64) (bool, error) {
	if f.ToggleLikeFunc != nil {
		return f.ToggleLikeFunc(ctx, db, roundNum, playerID, liked)
	}
	return false, nil
}

type fakeSubmissionRepo struct {
	submissiondb.Repository

	GetFunc                 func(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*submissiondb.Submission, error)
	GetByPositionFunc       func(ctx context.Context, db bun.IDB, roundNum int64, position int) (*submissiondb.Submission, error)
	ListByRoundFunc         func(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error)
	SetFinishedGuessingFunc func(ctx context.Context, db bun.IDB, roundNum, authorID int64, finished bool) (bool, error)
}

func (f *fakeSubmissionRepo) Get(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*submissiondb.Submission, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, db, roundNum, authorID)
	}
	return nil, submissiondb.ErrNotFound
}

func (f *fakeSubmissionRepo) GetByPosition(ctx context.Context, db bun.IDB, roundNum int64, position int) (*submissiondb.Submission, error) {
	if f.GetByPositionFunc != nil {
		return f.GetByPositionFunc(ctx, db, roundNum, position)
	}
	return nil, submissiondb.ErrNotFound
}

func (f *fakeSubmissionRepo) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error) {
	if f.ListByRoundFunc != nil {
		return f.ListByRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}

func (f *fakeSubmissionRepo) SetFinishedGuessing(ctx context.Context, db bun.IDB, roundNum, authorID int64, finished bool) (bool, error) {
	if f.SetFinishedGuessingFunc != nil {
		return f.SetFinishedGuessingFunc(ctx, db, roundNum, authorID, finished)
	}
	return false, nil
}

type fakeRoundRepo struct {
	rounddb.Repository

	GetByNumFunc func(ctx context.Context, db bun.IDB, num int64) (*rounddb.Round, error)
}

func (f *fakeRoundRepo) GetByNum(ctx context.Context, db bun.IDB, num int64) (*rounddb.Round, error) {
	if f.GetByNumFunc != nil {
		return f.GetByNumFunc(ctx, db, num)
	}
	return nil, rounddb.ErrNotFound
}

type capturingPublisher struct {
	topics   []string
	payloads []any
}

func (p *capturingPublisher) Publish(topic string, payload any) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}
