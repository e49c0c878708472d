package roundservice

import (
	"context"

	"github.com/uptrace/bun"

	commentdb "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories"
	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared/persona"
)

type fakeRoundRepo struct {
	InsertFunc            func(ctx context.Context, db bun.IDB, round *rounddb.Round) error
	GetByNumFunc          func(ctx context.Context, db bun.IDB, num int64) (*rounddb.Round, error)
	GetActiveFunc         func(ctx context.Context, db bun.IDB) (*rounddb.Round, error)
	UpdateFunc            func(ctx context.Context, db bun.IDB, round *rounddb.Round) error
	ListCompletedNumsFunc func(ctx context.Context, db bun.IDB, upTo int64) ([]int64, error)
	ListAllFunc           func(ctx context.Context, db bun.IDB) ([]rounddb.Round, error)
}

var _ rounddb.Repository = (*fakeRoundRepo)(nil)

func (f *fakeRoundRepo) Insert(ctx context.Context, db bun.IDB, round *rounddb.Round) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, round)
	}
	round.Num = 1
	return nil
}

func (f *fakeRoundRepo) GetByNum(ctx context.Context, db bun.IDB, num int64) (*rounddb.Round, error) {
	if f.GetByNumFunc != nil {
		return f.GetByNumFunc(ctx, db, num)
	}
	return nil, rounddb.ErrNotFound
}

func (f *fakeRoundRepo) GetActive(ctx context.Context, db bun.IDB) (*rounddb.Round, error) {
	if f.GetActiveFunc != nil {
		return f.GetActiveFunc(ctx, db)
	}
	return nil, rounddb.ErrNotFound
}

func (f *fakeRoundRepo) Update(ctx context.Context, db bun.IDB, round *rounddb.Round) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, db, round)
	}
	return nil
}

func (f *fakeRoundRepo) ListCompletedNums(ctx context.Context, db bun.IDB, upTo int64) ([]int64, error) {
	if f.ListCompletedNumsFunc != nil {
		return f.ListCompletedNumsFunc(ctx, db, upTo)
	}
	return nil, nil
}

func (f *fakeRoundRepo) ListAll(ctx context.Context, db bun.IDB) ([]rounddb.Round, error) {
	if f.ListAllFunc != nil {
		return f.ListAllFunc(ctx, db)
	}
	return nil, nil
}

type fakeSubmissionRepo struct {
	submissiondb.Repository

	GetFunc             func(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*submissiondb.Submission, error)
	ListByRoundFunc     func(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error)
	CountByRoundFunc    func(ctx context.Context, db bun.IDB, roundNum int64) (int, error)
	DeleteFunc          func(ctx context.Context, db bun.IDB, roundNum, authorID int64) error
	UpdatePositionsFunc func(ctx context.Context, db bun.IDB, roundNum int64, assignments []submissiondb.PositionAssignment) error
	ClearPositionsFunc  func(ctx context.Context, db bun.IDB, roundNum int64) error
	DeleteFilesFunc     func(ctx context.Context, db bun.IDB, roundNum, authorID int64) error
}

func (f *fakeSubmissionRepo) Get(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*submissiondb.Submission, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, db, roundNum, authorID)
	}
	return nil, submissiondb.ErrNotFound
}

func (f *fakeSubmissionRepo) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error) {
	if f.ListByRoundFunc != nil {
		return f.ListByRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}

func (f *fakeSubmissionRepo) CountByRound(ctx context.Context, db bun.IDB, roundNum int64) (int, error) {
	if f.CountByRoundFunc != nil {
		return f.CountByRoundFunc(ctx, db, roundNum)
	}
	return 0, nil
}

func (f *fakeSubmissionRepo) Delete(ctx context.Context, db bun.IDB, roundNum, authorID int64) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, db, roundNum, authorID)
	}
	return nil
}

func (f *fakeSubmissionRepo) UpdatePositions(ctx context.Context, db bun.IDB, roundNum int64, assignments []submissiondb.PositionAssignment) error {
	if f.UpdatePositionsFunc != nil {
		return f.UpdatePositionsFunc(ctx, db, roundNum, assignments)
	}
	return nil
}

func (f *fakeSubmissionRepo) ClearPositions(ctx context.Context, db bun.IDB, roundNum int64) error {
	if f.ClearPositionsFunc != nil {
		return f.ClearPositionsFunc(ctx, db, roundNum)
	}
	return nil
}

func (f *fakeSubmissionRepo) DeleteFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) error {
	if f.DeleteFilesFunc != nil {
		return f.DeleteFilesFunc(ctx, db, roundNum, authorID)
	}
	return nil
}

type fakeGuessRepo struct {
	guessdb.Repository

	DeleteByActualFunc  func(ctx context.Context, db bun.IDB, roundNum, actual int64) error
	DeleteByGuesserFunc func(ctx context.Context, db bun.IDB, roundNum, playerID int64) error
}

func (f *fakeGuessRepo) DeleteByActual(ctx context.Context, db bun.IDB, roundNum, actual int64) error {
	if f.DeleteByActualFunc != nil {
		return f.DeleteByActualFunc(ctx, db, roundNum, actual)
	}
	return nil
}

func (f *fakeGuessRepo) DeleteByGuesser(ctx context.Context, db bun.IDB, roundNum, playerID int64) error {
	if f.DeleteByGuesserFunc != nil {
		return f.DeleteByGuesserFunc(ctx, db, roundNum, playerID)
	}
	return nil
}

type fakeCommentRepo struct {
	commentdb.Repository

	DeanonymizeRoundFunc func(ctx context.Context, db bun.IDB, roundNum int64) error
}

func (f *fakeCommentRepo) DeanonymizeRound(ctx context.Context, db bun.IDB, roundNum int64) error {
	if f.DeanonymizeRoundFunc != nil {
		return f.DeanonymizeRoundFunc(ctx, db, roundNum)
	}
	return nil
}

type fakeScorer struct {
	ScoreRoundFunc    func(ctx context.Context, db bun.IDB, roundNum int64) ([]*scoredb.Score, error)
	ApplyTiebreakFunc func(ctx context.Context, db bun.IDB, roundNum int64, scores []*scoredb.Score) ([]*scoredb.Tiebreak, error)
}

func (f *fakeScorer) ScoreRound(ctx context.Context, db bun.IDB, roundNum int64) ([]*scoredb.Score, error) {
	if f.ScoreRoundFunc != nil {
		return f.ScoreRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}

func (f *fakeScorer) ApplyTiebreak(ctx context.Context, db bun.IDB, roundNum int64, scores []*scoredb.Score) ([]*scoredb.Tiebreak, error) {
	if f.ApplyTiebreakFunc != nil {
		return f.ApplyTiebreakFunc(ctx, db, roundNum, scores)
	}
	return nil, nil
}

type fakePersona struct {
	persona.Disabled

	IssueFunc  func(ctx context.Context, userID int64, name string) (string, error)
	RenameFunc func(ctx context.Context, token string, name string) error
	purged     int
}

func (f *fakePersona) Issue(ctx context.Context, userID int64, name string) (string, error) {
	if f.IssueFunc != nil {
		return f.IssueFunc(ctx, userID, name)
	}
	return f.Disabled.Issue(ctx, userID, name)
}

func (f *fakePersona) Rename(ctx context.Context, token string, name string) error {
	if f.RenameFunc != nil {
		return f.RenameFunc(ctx, token, name)
	}
	return nil
}

func (f *fakePersona) Purge(context.Context) error {
	f.purged++
	return nil
}

type capturingPublisher struct {
	topics   []string
	payloads []any
	err      error
}

func (p *capturingPublisher) Publish(topic string, payload any) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.err
}

type countingBackup struct {
	calls []int64
	err   error
}

func (b *countingBackup) Backup(_ context.Context, roundNum int64) error {
	b.calls = append(b.calls, roundNum)
	return b.err
}
