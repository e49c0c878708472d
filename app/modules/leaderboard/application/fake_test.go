package leaderboardservice

import (
	"context"

	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	userdb "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories"
)

type fakeScoreRepo struct {
	scoredb.Repository

	ListByRoundsFunc          func(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Score, error)
	ListTiebreaksByRoundsFunc func(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Tiebreak, error)
}

func (f *fakeScoreRepo) ListByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Score, error) {
	if f.ListByRoundsFunc != nil {
		return f.ListByRoundsFunc(ctx, db, roundNums)
	}
	return nil, nil
}

func (f *fakeScoreRepo) ListTiebreaksByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]scoredb.Tiebreak, error) {
	if f.ListTiebreaksByRoundsFunc != nil {
		return f.ListTiebreaksByRoundsFunc(ctx, db, roundNums)
	}
	return nil, nil
}

type fakeGuessRepo struct {
	guessdb.Repository

	LikesReceivedFunc func(ctx context.Context, db bun.IDB, from, to int64) (map[int64]int, error)
}

func (f *fakeGuessRepo) LikesReceived(ctx context.Context, db bun.IDB, from, to int64) (map[int64]int, error) {
	if f.LikesReceivedFunc != nil {
		return f.LikesReceivedFunc(ctx, db, from, to)
	}
	return map[int64]int{}, nil
}

type fakeRoundRepo struct {
	rounddb.Repository

	ListCompletedNumsFunc func(ctx context.Context, db bun.IDB, upTo int64) ([]int64, error)
}

func (f *fakeRoundRepo) ListCompletedNums(ctx context.Context, db bun.IDB, upTo int64) ([]int64, error) {
	if f.ListCompletedNumsFunc != nil {
		return f.ListCompletedNumsFunc(ctx, db, upTo)
	}
	return nil, nil
}

type fakeUserRepo struct {
	userdb.Repository

	GetNamesFunc func(ctx context.Context, db bun.IDB, ids []int64) (map[int64]string, error)
}

func (f *fakeUserRepo) GetNames(ctx context.Context, db bun.IDB, ids []int64) (map[int64]string, error) {
	if f.GetNamesFunc != nil {
		return f.GetNamesFunc(ctx, db, ids)
	}
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		names[id] = ""
	}
	return names, nil
}
