package commentservice

import (
	"context"

	"github.com/uptrace/bun"

	commentdb "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared/persona"
)

type fakeCommentRepo struct {
	InsertFunc           func(ctx context.Context, db bun.IDB, comment *commentdb.Comment) error
	GetByIDFunc          func(ctx context.Context, db bun.IDB, id int64) (*commentdb.Comment, error)
	ListByRoundFunc      func(ctx context.Context, db bun.IDB, roundNum int64) ([]commentdb.Comment, error)
	UpdateContentFunc    func(ctx context.Context, db bun.IDB, id int64, content, personaTok string, ogPersona *string) error
	DeleteFunc           func(ctx context.Context, db bun.IDB, id int64) error
	DeanonymizeRoundFunc func(ctx context.Context, db bun.IDB, roundNum int64) error
}

var _ commentdb.Repository = (*fakeCommentRepo)(nil)

func (f *fakeCommentRepo) Insert(ctx context.Context, db bun.IDB, comment *commentdb.Comment) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, comment)
	}
	comment.ID = 1
	return nil
}

func (f *fakeCommentRepo) GetByID(ctx context.Context, db bun.IDB, id int64) (*commentdb.Comment, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, id)
	}
	return nil, commentdb.ErrNotFound
}

func (f *fakeCommentRepo) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]commentdb.Comment, error) {
	if f.ListByRoundFunc != nil {
		return f.ListByRoundFunc(ctx, db, roundNum)
	}
	return nil, nil
}

func (f *fakeCommentRepo) UpdateContent(ctx context.Context, db bun.IDB, id int64, content, personaTok string, ogPersona *string) error {
	if f.UpdateContentFunc != nil {
		return f.UpdateContentFunc(ctx, db, id, content, personaTok, ogPersona)
	}
	return nil
}

func (f *fakeCommentRepo) Delete(ctx context.Context, db bun.IDB, id int64) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, db, id)
	}
	return nil
}

func (f *fakeCommentRepo) DeanonymizeRound(ctx context.Context, db bun.IDB, roundNum int64) error {
	if f.DeanonymizeRoundFunc != nil {
		return f.DeanonymizeRoundFunc(ctx, db, roundNum)
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

type fakeSubmissionRepo struct {
	submissiondb.Repository

	GetFunc func(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*submissiondb.Submission, error)
}

func (f *fakeSubmissionRepo) Get(ctx context.Context, db bun.IDB, roundNum, authorID int64) (*submissiondb.Submission, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, db, roundNum, authorID)
	}
	return nil, submissiondb.ErrNotFound
}

type fakePersona struct {
	persona.Disabled

	TransformFunc func(ctx context.Context, userID int64, token string, text string) (string, error)
}

func (f *fakePersona) Transform(ctx context.Context, userID int64, token string, text string) (string, error) {
	if f.TransformFunc != nil {
		return f.TransformFunc(ctx, userID, token, text)
	}
	return text, nil
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
