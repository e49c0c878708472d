// Package submissionservice handles entry uploads and display tags. An upload
// replaces the author's whole file set: partial edits do not exist, which
// keeps the stored entry equal to exactly one upload.
package submissionservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	userdb "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/filetype"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// FileUpload is one file in an upload request.
type FileUpload struct {
	Name    string
	Content []byte
}

// Service owns submissions and their files.
type Service struct {
	subRepo   submissiondb.Repository
	roundRepo rounddb.Repository
	userRepo  userdb.Repository
	db        *bun.DB
	tel       operation.Telemetry
}

// NewService creates a submission service.
func NewService(
	subRepo submissiondb.Repository,
	roundRepo rounddb.Repository,
	userRepo userdb.Repository,
	db *bun.DB,
	tel operation.Telemetry,
) *Service {
	return &Service{
		subRepo:   subRepo,
		roundRepo: roundRepo,
		userRepo:  userRepo,
		db:        db,
		tel:       tel,
	}
}

// Upload stores an author's entry for the round, replacing any previous one.
// The author's display name is upserted at the same time, so a person row
// always exists before the submission's foreign key needs it.
func (s *Service) Upload(ctx context.Context, roundNum, authorID int64, authorName string, files []FileUpload) (results.OperationResult[submissiondb.Submission, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "UploadSubmission", strconv.FormatInt(authorID, 10),
		func(ctx context.Context) (results.OperationResult[submissiondb.Submission, error], error) {
			if len(files) == 0 {
				return results.FailureResult[submissiondb.Submission](error(shared.NewValidationError("an entry needs at least one file"))), nil
			}
			seen := make(map[string]bool, len(files))
			for _, f := range files {
				if f.Name == "" {
					return results.FailureResult[submissiondb.Submission](error(shared.NewValidationError("file name cannot be empty"))), nil
				}
				if seen[f.Name] {
					return results.FailureResult[submissiondb.Submission](error(shared.NewValidationError("duplicate file name %q", f.Name))), nil
				}
				seen[f.Name] = true
			}

			round, err := s.roundRepo.GetByNum(ctx, nil, roundNum)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return results.FailureResult[submissiondb.Submission](error(shared.NewNotFoundError("round %d does not exist", roundNum))), nil
				}
				return results.OperationResult[submissiondb.Submission, error]{}, err
			}
			if round.Stage != rounddb.StageWriting {
				return results.FailureResult[submissiondb.Submission](error(shared.NewValidationError("round %d is not accepting entries", roundNum))), nil
			}

			return operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[submissiondb.Submission, error], error) {
				if err := s.userRepo.Upsert(ctx, db, &userdb.Person{ID: authorID, Name: authorName}); err != nil {
					return results.OperationResult[submissiondb.Submission, error]{}, err
				}

				sub := &submissiondb.Submission{
					RoundNum:    roundNum,
					AuthorID:    authorID,
					SubmittedAt: time.Now(),
				}
				if err := s.subRepo.Upsert(ctx, db, sub); err != nil {
					return results.OperationResult[submissiondb.Submission, error]{}, err
				}

				if err := s.subRepo.DeleteFiles(ctx, db, roundNum, authorID); err != nil {
					return results.OperationResult[submissiondb.Submission, error]{}, err
				}
				rows := make([]*submissiondb.File, len(files))
				for i, f := range files {
					rows[i] = &submissiondb.File{
						RoundNum: roundNum,
						AuthorID: authorID,
						Name:     f.Name,
						Content:  f.Content,
						Lang:     filetype.Infer(f.Name, f.Content),
					}
				}
				if err := s.subRepo.InsertFiles(ctx, db, rows); err != nil {
					return results.OperationResult[submissiondb.Submission, error]{}, err
				}
				return results.SuccessResult[submissiondb.Submission, error](*sub), nil
			})
		})
}

// UpdateFileTag sets a file's display tag from the whitelist. Authors may
// retag their own files while the round is writing; admins may retag anything
// at any stage (the usual case being a wrong tag noticed after the reveal).
func (s *Service) UpdateFileTag(ctx context.Context, roundNum, authorID, actorID int64, isAdmin bool, fileName, tag string) (results.OperationResult[submissiondb.File, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "UpdateFileTag", strconv.FormatInt(actorID, 10),
		func(ctx context.Context) (results.OperationResult[submissiondb.File, error], error) {
			if !filetype.IsKnown(tag) {
				return results.FailureResult[submissiondb.File](error(shared.NewValidationError("unknown display tag %q", tag))), nil
			}
			if authorID != actorID && !isAdmin {
				return results.FailureResult[submissiondb.File](error(shared.NewForbiddenError("cannot retag someone else's file"))), nil
			}

			round, err := s.roundRepo.GetByNum(ctx, nil, roundNum)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return results.FailureResult[submissiondb.File](error(shared.NewNotFoundError("round %d does not exist", roundNum))), nil
				}
				return results.OperationResult[submissiondb.File, error]{}, err
			}
			if !isAdmin && round.Stage != rounddb.StageWriting {
				return results.FailureResult[submissiondb.File](error(shared.NewValidationError("round %d is no longer accepting changes", roundNum))), nil
			}

			lang := filetype.Normalize(tag)
			if err := s.subRepo.UpdateFileLang(ctx, nil, roundNum, authorID, fileName, lang); err != nil {
				if errors.Is(err, submissiondb.ErrNotFound) {
					return results.FailureResult[submissiondb.File](error(shared.NewNotFoundError("no file %q in round %d", fileName, roundNum))), nil
				}
				return results.OperationResult[submissiondb.File, error]{}, err
			}
			return results.SuccessResult[submissiondb.File, error](submissiondb.File{
				RoundNum: roundNum,
				AuthorID: authorID,
				Name:     fileName,
				Lang:     lang,
			}), nil
		})
}

// EntryFile is a file as shown on the round page.
type EntryFile struct {
	Name string  `json:"name"`
	Size int     `json:"size"`
	Lang *string `json:"lang,omitempty"`
}

// Entry is one positioned submission, as shown anonymously during guessing
// and attributed after completion.
type Entry struct {
	Position int         `json:"position"`
	Persona  *string     `json:"persona,omitempty"`
	AuthorID *int64      `json:"author_id,omitempty"`
	Files    []EntryFile `json:"files"`
}

// Entries lists a round's positioned submissions for display. Author ids are
// only attached once the round has completed.
func (s *Service) Entries(ctx context.Context, roundNum int64) (results.OperationResult[[]Entry, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ListEntries", strconv.FormatInt(roundNum, 10),
		func(ctx context.Context) (results.OperationResult[[]Entry, error], error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, roundNum)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return results.FailureResult[[]Entry](error(shared.NewNotFoundError("round %d does not exist", roundNum))), nil
				}
				return results.OperationResult[[]Entry, error]{}, err
			}

			subs, err := s.subRepo.ListByRound(ctx, nil, roundNum)
			if err != nil {
				return results.OperationResult[[]Entry, error]{}, err
			}

			revealed := round.Stage == rounddb.StageCompleted
			entries := make([]Entry, 0, len(subs))
			for _, sub := range subs {
				if sub.Position == nil {
					continue
				}
				files, err := s.subRepo.ListFiles(ctx, nil, roundNum, sub.AuthorID)
				if err != nil {
					return results.OperationResult[[]Entry, error]{}, err
				}
				entry := Entry{Position: *sub.Position, Persona: sub.Persona}
				if revealed {
					authorID := sub.AuthorID
					entry.AuthorID = &authorID
				}
				for _, f := range files {
					entry.Files = append(entry.Files, EntryFile{Name: f.Name, Size: len(f.Content), Lang: f.Lang})
				}
				entries = append(entries, entry)
			}
			return results.SuccessResult[[]Entry, error](entries), nil
		})
}

// OwnFiles returns the caller's current file set for a round.
func (s *Service) OwnFiles(ctx context.Context, roundNum, authorID int64) (results.OperationResult[[]submissiondb.File, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ListOwnFiles", strconv.FormatInt(authorID, 10),
		func(ctx context.Context) (results.OperationResult[[]submissiondb.File, error], error) {
			files, err := s.subRepo.ListFiles(ctx, nil, roundNum, authorID)
			if err != nil {
				return results.OperationResult[[]submissiondb.File, error]{}, err
			}
			return results.SuccessResult[[]submissiondb.File, error](files), nil
		})
}

// GetFileByPosition resolves one file of a positioned entry, for downloads
// during guessing where the author must stay hidden.
func (s *Service) GetFileByPosition(ctx context.Context, roundNum int64, position int, fileName string) (results.OperationResult[submissiondb.File, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "GetFileByPosition", fmt.Sprintf("%d/%d", roundNum, position),
		func(ctx context.Context) (results.OperationResult[submissiondb.File, error], error) {
			sub, err := s.subRepo.GetByPosition(ctx, nil, roundNum, position)
			if err != nil {
				if errors.Is(err, submissiondb.ErrNotFound) {
					return results.FailureResult[submissiondb.File](error(shared.NewNotFoundError("no entry at position %d", position))), nil
				}
				return results.OperationResult[submissiondb.File, error]{}, err
			}
			files, err := s.subRepo.ListFiles(ctx, nil, roundNum, sub.AuthorID)
			if err != nil {
				return results.OperationResult[submissiondb.File, error]{}, err
			}
			for _, f := range files {
				if f.Name == fileName {
					return results.SuccessResult[submissiondb.File, error](f), nil
				}
			}
			return results.FailureResult[submissiondb.File](error(shared.NewNotFoundError("no file %q at position %d", fileName, position))), nil
		})
}
