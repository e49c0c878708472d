package submissionservice

import (
	"context"

	"github.com/uptrace/bun"

	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	userdb "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories"
)

type fakeSubmissionRepo struct {
	submissiondb.Repository

	UpsertFunc         func(ctx context.Context, db bun.IDB, sub *submissiondb.Submission) error
	GetByPositionFunc  func(ctx context.Context, db bun.IDB, roundNum int64, position int) (*submissiondb.Submission, error)
	ListByRoundFunc    func(ctx context.Context, db bun.IDB, roundNum int64) ([]submissiondb.Submission, error)
	DeleteFilesFunc    func(ctx context.Context, db bun.IDB, roundNum, authorID int64) error
	InsertFilesFunc    func(ctx context.Context, db bun.IDB, files []*submissiondb.File) error
	ListFilesFunc      func(ctx context.Context, db bun.IDB, roundNum, authorID int64) ([]submissiondb.File, error)
	UpdateFileLangFunc func(ctx context.Context, db bun.IDB, roundNum, authorID int64, name string, lang *string) error
}

func (f *fakeSubmissionRepo) Upsert(ctx context.Context, db bun.IDB, sub *submissiondb.Submission) error {
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, sub)
	}
	return nil
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

func (f *fakeSubmissionRepo) DeleteFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) error {
	if f.DeleteFilesFunc != nil {
		return f.DeleteFilesFunc(ctx, db, roundNum, authorID)
	}
	return nil
}

func (f *fakeSubmissionRepo) InsertFiles(ctx context.Context, db bun.IDB, files []*submissiondb.File) error {
	if f.InsertFilesFunc != nil {
		return f.InsertFilesFunc(ctx, db, files)
	}
	return nil
}

func (f *fakeSubmissionRepo) ListFiles(ctx context.Context, db bun.IDB, roundNum, authorID int64) ([]submissiondb.File, error) {
	if f.ListFilesFunc != nil {
		return f.ListFilesFunc(ctx, db, roundNum, authorID)
	}
	return nil, nil
}

func (f *fakeSubmissionRepo) UpdateFileLang(ctx context.Context, db bun.IDB, roundNum, authorID int64, name string, lang *string) error {
	if f.UpdateFileLangFunc != nil {
		return f.UpdateFileLangFunc(ctx, db, roundNum, authorID, name, lang)
	}
	return nil
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

type fakeUserRepo struct {
	userdb.Repository

	UpsertFunc func(ctx context.Context, db bun.IDB, person *userdb.Person) error
}

func (f *fakeUserRepo) Upsert(ctx context.Context, db bun.IDB, person *userdb.Person) error {
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, person)
	}
	return nil
}
