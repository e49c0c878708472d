// Package commentservice manages the discussion thread attached to each
// round. During the guessing stage authors speak through their persona and
// the text runs through the canon voice transform; once the round completes
// the thread is de-anonymized in bulk by the round service.
package commentservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	commentdb "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/events"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/persona"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// Service owns comment posting, editing and deletion.
type Service struct {
	commentRepo commentdb.Repository
	roundRepo   rounddb.Repository
	subRepo     submissiondb.Repository
	personas    persona.Service
	publisher   events.Publisher
	db          *bun.DB
	baseURL     string
	tel         operation.Telemetry
}

// NewService creates a comment service.
func NewService(
	commentRepo commentdb.Repository,
	roundRepo rounddb.Repository,
	subRepo submissiondb.Repository,
	personas persona.Service,
	publisher events.Publisher,
	db *bun.DB,
	baseURL string,
	tel operation.Telemetry,
) *Service {
	return &Service{
		commentRepo: commentRepo,
		roundRepo:   roundRepo,
		subRepo:     subRepo,
		personas:    personas,
		publisher:   publisher,
		db:          db,
		baseURL:     baseURL,
		tel:         tel,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.tel.Logger != nil {
		return s.tel.Logger
	}
	return slog.Default()
}

// Post adds a comment to a round's thread. In the guessing stage an author
// who submitted posts behind their persona token, with the text rewritten in
// that persona's voice; a failed rewrite falls back to the original text
// rather than blocking the post.
func (s *Service) Post(ctx context.Context, roundNum, authorID int64, content string, reply *int64) (results.OperationResult[commentdb.Comment, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "PostComment", strconv.FormatInt(authorID, 10),
		func(ctx context.Context) (results.OperationResult[commentdb.Comment, error], error) {
			content = strings.TrimSpace(content)
			if content == "" {
				return results.FailureResult[commentdb.Comment](error(shared.NewValidationError("comment cannot be empty"))), nil
			}

			round, err := s.roundRepo.GetByNum(ctx, nil, roundNum)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return results.FailureResult[commentdb.Comment](error(shared.NewNotFoundError("round %d does not exist", roundNum))), nil
				}
				return results.OperationResult[commentdb.Comment, error]{}, err
			}
			if round.Stage == rounddb.StagePending {
				return results.FailureResult[commentdb.Comment](error(shared.NewValidationError("round %d has not started", roundNum))), nil
			}

			var parentAuthor int64
			if reply != nil {
				parent, err := s.commentRepo.GetByID(ctx, nil, *reply)
				if err != nil {
					if errors.Is(err, commentdb.ErrNotFound) {
						return results.FailureResult[commentdb.Comment](error(shared.NewNotFoundError("comment %d does not exist", *reply))), nil
					}
					return results.OperationResult[commentdb.Comment, error]{}, err
				}
				if parent.RoundNum != roundNum {
					return results.FailureResult[commentdb.Comment](error(shared.NewValidationError("cannot reply across rounds"))), nil
				}
				parentAuthor = parent.AuthorID
			}

			comment := &commentdb.Comment{
				RoundNum: roundNum,
				AuthorID: authorID,
				Content:  content,
				Reply:    reply,
			}

			if round.Stage == rounddb.StageGuessing {
				sub, err := s.subRepo.Get(ctx, nil, roundNum, authorID)
				if err != nil && !errors.Is(err, submissiondb.ErrNotFound) {
					return results.OperationResult[commentdb.Comment, error]{}, err
				}
				if sub != nil && sub.Persona != nil {
					comment.Persona = *sub.Persona
					transformed, err := s.personas.Transform(ctx, authorID, *sub.Persona, content)
					if err != nil {
						s.logger().WarnContext(ctx, "Persona transform failed, posting raw text",
							"round_num", roundNum, "error", err)
					} else {
						comment.Content = transformed
					}
				}
			}

			if err := s.commentRepo.Insert(ctx, nil, comment); err != nil {
				return results.OperationResult[commentdb.Comment, error]{}, err
			}

			if err := s.publisher.Publish(events.CommentPosted, events.CommentPayload{
				RoundNum:     roundNum,
				CommentID:    comment.ID,
				ParentAuthor: parentAuthor,
				AuthorID:     authorID,
				Persona:      comment.Persona,
				ReplyTo:      reply,
				URL:          fmt.Sprintf("%s/%d#comment-%d", s.baseURL, roundNum, comment.ID),
			}); err != nil {
				s.logger().WarnContext(ctx, "Failed to publish comment event",
					"comment_id", comment.ID, "error", err)
			}

			return results.SuccessResult[commentdb.Comment, error](*comment), nil
		})
}

// Edit replaces a comment's content. Only the author may edit, at any stage.
// While the round is still guessing the edit runs through the same persona
// voice transform as posting, refreshing the comment's speaking persona; the
// first persona it ever spoke as is kept in og_persona.
func (s *Service) Edit(ctx context.Context, commentID, actorID int64, content string) (results.OperationResult[commentdb.Comment, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "EditComment", strconv.FormatInt(commentID, 10),
		func(ctx context.Context) (results.OperationResult[commentdb.Comment, error], error) {
			content = strings.TrimSpace(content)
			if content == "" {
				return results.FailureResult[commentdb.Comment](error(shared.NewValidationError("comment cannot be empty"))), nil
			}

			comment, err := s.commentRepo.GetByID(ctx, nil, commentID)
			if err != nil {
				if errors.Is(err, commentdb.ErrNotFound) {
					return results.FailureResult[commentdb.Comment](error(shared.NewNotFoundError("comment %d does not exist", commentID))), nil
				}
				return results.OperationResult[commentdb.Comment, error]{}, err
			}
			if comment.AuthorID != actorID {
				return results.FailureResult[commentdb.Comment](error(shared.NewForbiddenError("only the author can edit a comment"))), nil
			}

			round, err := s.roundRepo.GetByNum(ctx, nil, comment.RoundNum)
			if err != nil {
				return results.OperationResult[commentdb.Comment, error]{}, err
			}

			newContent := content
			newPersona := comment.Persona
			ogPersona := comment.OgPersona
			if round.Stage == rounddb.StageGuessing {
				sub, err := s.subRepo.Get(ctx, nil, comment.RoundNum, actorID)
				if err != nil && !errors.Is(err, submissiondb.ErrNotFound) {
					return results.OperationResult[commentdb.Comment, error]{}, err
				}
				if sub != nil && sub.Persona != nil {
					if ogPersona == nil && comment.Persona != "" {
						og := comment.Persona
						ogPersona = &og
					}
					newPersona = *sub.Persona
					transformed, err := s.personas.Transform(ctx, actorID, *sub.Persona, content)
					if err != nil {
						s.logger().WarnContext(ctx, "Persona transform failed, keeping raw text",
							"comment_id", commentID, "error", err)
					} else {
						newContent = transformed
					}
				}
			}

			if err := s.commentRepo.UpdateContent(ctx, nil, commentID, newContent, newPersona, ogPersona); err != nil {
				return results.OperationResult[commentdb.Comment, error]{}, err
			}
			comment.Content = newContent
			comment.Persona = newPersona
			comment.OgPersona = ogPersona
			return results.SuccessResult[commentdb.Comment, error](*comment), nil
		})
}

// Delete removes a comment. The author or an admin may delete.
func (s *Service) Delete(ctx context.Context, commentID, actorID int64, isAdmin bool) (results.OperationResult[int64, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "DeleteComment", strconv.FormatInt(commentID, 10),
		func(ctx context.Context) (results.OperationResult[int64, error], error) {
			comment, err := s.commentRepo.GetByID(ctx, nil, commentID)
			if err != nil {
				if errors.Is(err, commentdb.ErrNotFound) {
					return results.FailureResult[int64](error(shared.NewNotFoundError("comment %d does not exist", commentID))), nil
				}
				return results.OperationResult[int64, error]{}, err
			}
			if comment.AuthorID != actorID && !isAdmin {
				return results.FailureResult[int64](error(shared.NewForbiddenError("only the author or an admin can delete a comment"))), nil
			}

			if err := s.commentRepo.Delete(ctx, nil, commentID); err != nil {
				return results.OperationResult[int64, error]{}, err
			}
			return results.SuccessResult[int64, error](commentID), nil
		})
}

// ListByRound returns a round's thread in posting order.
func (s *Service) ListByRound(ctx context.Context, roundNum int64) (results.OperationResult[[]commentdb.Comment, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ListComments", strconv.FormatInt(roundNum, 10),
		func(ctx context.Context) (results.OperationResult[[]commentdb.Comment, error], error) {
			comments, err := s.commentRepo.ListByRound(ctx, nil, roundNum)
			if err != nil {
				return results.OperationResult[[]commentdb.Comment, error]{}, err
			}
			return results.SuccessResult[[]commentdb.Comment, error](comments), nil
		})
}
