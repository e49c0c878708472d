package scoreservice

import (
	"context"

	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
)

type fakeScoreRepo struct {
	InsertScoresFunc          func(ctx context.Context, db bun.IDB, scores []*scoredb.Score) error
	ListByRoundFunc           func(ctx context.Context, db bun.IDB, roundNum int64) ([]scoredb.Score, error)
	ListByRoundsFunc          func(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Score, error)
	InsertTiebreaksFunc       func(ctx context.Context, db bun.IDB, tiebreaks []*scoredb.Tiebreak) error
	ListTiebreaksByRoundsFunc func(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Tiebreak, error)
	SetTargetFunc             func(ctx context.Context, db bun.IDB, target *scoredb.Target) error
	ListTargetsFunc           func(ctx context.Context, db bun.IDB, roundNum int64) ([]scoredb.Target, error)
}

var _ scoredb.Repository = (*fakeScoreRepo)(nil)

func (f *fakeScoreRepo) InsertScores(ctx context.Context, db bun.IDB, scores []*scoredb.Score) error {
	if f.InsertScoresFunc != nil {
		return f.InsertScoresFunc(ctx, db, scores)
	}
	return nil
}

func (f *fakeScoreRepo) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]scoredb.Score, error) {
	if f.ListByRoundFunc != nil {
		return f.ListByRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}

func (f *fakeScoreRepo) ListByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Score, error) {
	if f.ListByRoundsFunc != nil {
		return f.ListByRoundsFunc(ctx, db, roundNums)
	}
	return nil, nil
}

func (f *fakeScoreRepo) InsertTiebreaks(ctx context.Context, db bun.IDB, tiebreaks []*scoredb.Tiebreak) error {
	if f.InsertTiebreaksFunc != nil {
		return f.InsertTiebreaksFunc(ctx, db, tiebreaks)
	}
	return nil
}

func (f *fakeScoreRepo) ListTiebreaksByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Tiebreak, error) {
	if f.ListTiebreaksByRoundsFunc != nil {
		return f.ListTiebreaksByRoundsFunc(ctx, db, roundNums)
	}
	return nil, nil
}

func (f *fakeScoreRepo) SetTarget(ctx context.Context, db bun.IDB, target *scoredb.Target) error {
	if f.SetTargetFunc != nil {
		return f.SetTargetFunc(ctx, db, target)
	}
	return nil
}

func (f *fakeScoreRepo) ListTargets(ctx context.Context, db bun.IDB, roundNum int64) ([]scoredb.Target, error) {
	if f.ListTargetsFunc != nil {
		return f.ListTargetsFunc(ctx, db, roundNum)
	}
	return nil, nil
}

type fakeSubmissionRepo struct {
	submissiondb.Repository

	ListByRoundFunc func(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error)
}

func (f *fakeSubmissionRepo) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error) {
	if f.ListByRoundFunc != nil {
		return f.ListByRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}

type fakeGuessRepo struct {
	guessdb.Repository

	ListByRoundFunc func(ctx context.Context, db bun.IDB, roundNum int64) ([]guessdb.Guess, error)
}

func (f *fakeGuessRepo) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]guessdb.Guess, error) {
	if f.ListByRoundFunc != nil {
		return f.ListByRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}
