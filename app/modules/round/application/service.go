// Package roundservice drives the round lifecycle: pending, writing,
// guessing, completed. It is the only writer of the stage column, and every
// transition plus its side effects happens inside one transaction; anything
// best-effort (backup, persona purge, events) runs after commit.
package roundservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	commentdb "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories"
	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/backup"
	"github.com/esolangs/codeguessing/app/shared/events"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/persona"
	"github.com/esolangs/codeguessing/app/shared/results"
	"github.com/esolangs/codeguessing/config"
)

// Scorer is the slice of the score service the round lifecycle needs. Both
// methods run on the completing transaction's handle.
type Scorer interface {
	ScoreRound(ctx context.Context, db bun.IDB, roundNum int64) ([]*scoredb.Score, error)
	ApplyTiebreak(ctx context.Context, db bun.IDB, roundNum int64, scores []*scoredb.Score) ([]*scoredb.Tiebreak, error)
}

// Service owns round lifecycle transitions.
type Service struct {
	roundRepo   rounddb.Repository
	subRepo     submissiondb.Repository
	guessRepo   guessdb.Repository
	commentRepo commentdb.Repository
	scorer      Scorer
	personas    persona.Service
	publisher   events.Publisher
	backups     backup.Runner
	db          *bun.DB
	cfg         config.RoundsConfig
	tel         operation.Telemetry

	// shuffle is swappable so tests get deterministic position assignment.
	shuffle func(n int, swap func(i, j int))
}

// NewService creates a round service.
func NewService(
	roundRepo rounddb.Repository,
	subRepo submissiondb.Repository,
	guessRepo guessdb.Repository,
	commentRepo commentdb.Repository,
	scorer Scorer,
	personas persona.Service,
	publisher events.Publisher,
	backups backup.Runner,
	db *bun.DB,
	cfg config.RoundsConfig,
	tel operation.Telemetry,
) *Service {
	return &Service{
		roundRepo:   roundRepo,
		subRepo:     subRepo,
		guessRepo:   guessRepo,
		commentRepo: commentRepo,
		scorer:      scorer,
		personas:    personas,
		publisher:   publisher,
		backups:     backups,
		db:          db,
		cfg:         cfg,
		tel:         tel,
		shuffle:     rand.Shuffle,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.tel.Logger != nil {
		return s.tel.Logger
	}
	return slog.Default()
}

func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if err := s.publisher.Publish(topic, payload); err != nil {
		s.logger().WarnContext(ctx, "Failed to publish event",
			"topic", topic, "error", err)
	}
}

type roundResult = results.OperationResult[rounddb.Round, error]

func fail(err error) roundResult {
	return results.FailureResult[rounddb.Round](err)
}

func succeed(round rounddb.Round) roundResult {
	return results.SuccessResult[rounddb.Round, error](round)
}

// Create opens a new pending round, scheduled to start startDelay from now.
// Only one round may be in flight; a unique index backs this check up at the
// store level.
func (s *Service) Create(ctx context.Context, spec string, startDelay time.Duration) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "CreateRound", "",
		func(ctx context.Context) (roundResult, error) {
			if _, err := s.roundRepo.GetActive(ctx, nil); err == nil {
				return fail(shared.NewConflictError("a round is already in flight")), nil
			} else if !errors.Is(err, rounddb.ErrNotFound) {
				return roundResult{}, err
			}

			round := &rounddb.Round{
				Stage:     rounddb.StagePending,
				Spec:      spec,
				StartedAt: time.Now().Add(startDelay),
			}
			if err := s.roundRepo.Insert(ctx, nil, round); err != nil {
				return roundResult{}, err
			}
			return succeed(*round), nil
		})
}

// Start moves a pending round into its writing stage and stamps the advisory
// writing deadline.
func (s *Service) Start(ctx context.Context, num int64) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "StartRound", strconv.FormatInt(num, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}
			if round.Stage != rounddb.StagePending {
				return fail(shared.NewConflictError("round %d is not pending", num)), nil
			}

			now := time.Now()
			deadline := now.Add(s.cfg.WritingDuration)
			round.Stage = rounddb.StageWriting
			round.StartedAt = now
			round.WritingDeadline = &deadline
			if err := s.roundRepo.Update(ctx, nil, round); err != nil {
				return roundResult{}, err
			}

			s.publish(ctx, events.RoundStarted, events.RoundStagePayload{
				RoundNum: round.Num, Stage: string(round.Stage), At: now,
			})
			return succeed(*round), nil
		})
}

// Unstart reverts a writing round to pending, for a round announced by
// mistake. Refused once anyone has submitted: entries would be stranded on a
// round that officially never started.
func (s *Service) Unstart(ctx context.Context, num int64) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "UnstartRound", strconv.FormatInt(num, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}
			if round.Stage != rounddb.StageWriting {
				return fail(shared.NewConflictError("round %d is not in its writing stage", num)), nil
			}
			count, err := s.subRepo.CountByRound(ctx, nil, num)
			if err != nil {
				return roundResult{}, err
			}
			if count > 0 {
				return fail(shared.NewConflictError("round %d already has %d submissions", num, count)), nil
			}

			round.Stage = rounddb.StagePending
			round.StartedAt = time.Time{}
			round.WritingDeadline = nil
			if err := s.roundRepo.Update(ctx, nil, round); err != nil {
				return roundResult{}, err
			}
			return succeed(*round), nil
		})
}

// AdvanceToGuessing closes submissions: every entry gets a shuffled display
// position and an anonymous persona, and the round moves to its guessing
// stage. A persona service outage degrades to locally generated tokens rather
// than blocking the transition.
func (s *Service) AdvanceToGuessing(ctx context.Context, num int64) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "AdvanceToGuessing", strconv.FormatInt(num, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}
			if round.Stage != rounddb.StageWriting {
				return fail(shared.NewConflictError("round %d is not in its writing stage", num)), nil
			}

			subs, err := s.subRepo.ListByRound(ctx, nil, num)
			if err != nil {
				return roundResult{}, err
			}
			if len(subs) == 0 {
				return fail(shared.NewValidationError("round %d has no submissions", num)), nil
			}

			s.shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })
			assignments := make([]submissiondb.PositionAssignment, len(subs))
			for i, sub := range subs {
				token := s.issuePersona(ctx, sub.AuthorID, i+1)
				assignments[i] = submissiondb.PositionAssignment{
					AuthorID: sub.AuthorID,
					Position: i + 1,
					Persona:  &token,
				}
			}

			now := time.Now()
			deadline := now.Add(s.cfg.GuessingDuration)
			result, err := operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (roundResult, error) {
				if err := s.subRepo.UpdatePositions(ctx, db, num, assignments); err != nil {
					return roundResult{}, err
				}
				round.Stage = rounddb.StageGuessing
				round.Stage2At = &now
				round.GuessingDeadline = &deadline
				if err := s.roundRepo.Update(ctx, db, round); err != nil {
					return roundResult{}, err
				}
				return succeed(*round), nil
			})
			if err != nil || result.IsFailure() {
				return result, err
			}

			if err := s.backups.Backup(ctx, num); err != nil {
				s.logger().WarnContext(ctx, "Backup failed", "round_num", num, "error", err)
			}
			s.publish(ctx, events.RoundGuessing, events.RoundStagePayload{
				RoundNum: num, Stage: string(rounddb.StageGuessing), At: now,
			})
			return result, nil
		})
}

// issuePersona asks the canon service for a token and falls back to a local
// random one, so an outage costs voice transforms but never the transition.
func (s *Service) issuePersona(ctx context.Context, authorID int64, position int) string {
	name := fmt.Sprintf("entry #%d", position)
	token, err := s.personas.Issue(ctx, authorID, name)
	if err != nil {
		s.logger().WarnContext(ctx, "Persona issue failed, using local token",
			"author_id", authorID, "error", err)
		return uuid.NewString()
	}
	return token
}

// CompleteResult is the reveal: the completed round, its freshly computed
// scores, any tie-break demotions, and the pending round opened for next time.
type CompleteResult struct {
	Round     rounddb.Round       `json:"round"`
	Scores    []*scoredb.Score    `json:"scores"`
	Tiebreaks []*scoredb.Tiebreak `json:"tiebreaks,omitempty"`
	NextRound rounddb.Round       `json:"next_round"`
}

// Complete ends a guessing round: scores are computed and persisted, a shared
// first place is tie-broken down to one winner, the comment thread is
// de-anonymized, and the next pending round is opened, all in one
// transaction. Backup, persona purge and the completion event follow after
// commit.
func (s *Service) Complete(ctx context.Context, num int64) (results.OperationResult[CompleteResult, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "CompleteRound", strconv.FormatInt(num, 10),
		func(ctx context.Context) (results.OperationResult[CompleteResult, error], error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return results.FailureResult[CompleteResult](error(shared.NewNotFoundError("round %d does not exist", num))), nil
				}
				return results.OperationResult[CompleteResult, error]{}, err
			}
			if round.Stage != rounddb.StageGuessing {
				return results.FailureResult[CompleteResult](error(shared.NewConflictError("round %d is not in its guessing stage", num))), nil
			}

			now := time.Now()
			result, err := operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[CompleteResult, error], error) {
				round.Stage = rounddb.StageCompleted
				round.EndedAt = &now
				if err := s.roundRepo.Update(ctx, db, round); err != nil {
					return results.OperationResult[CompleteResult, error]{}, err
				}

				scores, err := s.scorer.ScoreRound(ctx, db, num)
				if err != nil {
					return results.OperationResult[CompleteResult, error]{}, err
				}
				tiebreaks, err := s.scorer.ApplyTiebreak(ctx, db, num, scores)
				if err != nil {
					return results.OperationResult[CompleteResult, error]{}, err
				}
				if err := s.commentRepo.DeanonymizeRound(ctx, db, num); err != nil {
					return results.OperationResult[CompleteResult, error]{}, err
				}

				next := &rounddb.Round{
					Stage:     rounddb.StagePending,
					StartedAt: now.Add(s.cfg.NextRoundDelay),
				}
				if err := s.roundRepo.Insert(ctx, db, next); err != nil {
					return results.OperationResult[CompleteResult, error]{}, err
				}

				return results.SuccessResult[CompleteResult, error](CompleteResult{
					Round:     *round,
					Scores:    scores,
					Tiebreaks: tiebreaks,
					NextRound: *next,
				}), nil
			})
			if err != nil || result.IsFailure() {
				return result, err
			}

			if err := s.backups.Backup(ctx, num); err != nil {
				s.logger().WarnContext(ctx, "Backup failed", "round_num", num, "error", err)
			}
			if err := s.personas.Purge(ctx); err != nil {
				s.logger().WarnContext(ctx, "Persona purge failed", "round_num", num, "error", err)
			}
			s.publish(ctx, events.RoundCompleted, events.RoundStagePayload{
				RoundNum: num, Stage: string(rounddb.StageCompleted), At: now,
			})
			return result, nil
		})
}

// Disqualify pulls an author out of a round: their submission, files and
// every guess naming them as the actual author go away, and remaining entries
// are renumbered densely so the public view has no gaps. Guesses they made
// about others stand and still score. Personas are renamed to match their new
// slots.
func (s *Service) Disqualify(ctx context.Context, num, authorID int64) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "DisqualifyAuthor", strconv.FormatInt(authorID, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}
			if round.Stage != rounddb.StageWriting && round.Stage != rounddb.StageGuessing {
				return fail(shared.NewConflictError("round %d is not accepting changes", num)), nil
			}
			if _, err := s.subRepo.Get(ctx, nil, num, authorID); err != nil {
				if errors.Is(err, submissiondb.ErrNotFound) {
					return fail(shared.NewNotFoundError("author %d has no submission in round %d", authorID, num)), nil
				}
				return roundResult{}, err
			}

			var renumbered []submissiondb.PositionAssignment
			result, err := operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (roundResult, error) {
				if err := s.subRepo.DeleteFiles(ctx, db, num, authorID); err != nil {
					return roundResult{}, err
				}
				if err := s.subRepo.Delete(ctx, db, num, authorID); err != nil {
					return roundResult{}, err
				}
				if err := s.guessRepo.DeleteByActual(ctx, db, num, authorID); err != nil {
					return roundResult{}, err
				}

				if round.Stage == rounddb.StageGuessing {
					remaining, err := s.subRepo.ListByRound(ctx, db, num)
					if err != nil {
						return roundResult{}, err
					}
					if err := s.subRepo.ClearPositions(ctx, db, num); err != nil {
						return roundResult{}, err
					}
					for i, sub := range remaining {
						renumbered = append(renumbered, submissiondb.PositionAssignment{
							AuthorID: sub.AuthorID,
							Position: i + 1,
							Persona:  sub.Persona,
						})
					}
					if err := s.subRepo.UpdatePositions(ctx, db, num, renumbered); err != nil {
						return roundResult{}, err
					}
				}
				return succeed(*round), nil
			})
			if err != nil || result.IsFailure() {
				return result, err
			}

			for _, a := range renumbered {
				if a.Persona == nil {
					continue
				}
				if err := s.personas.Rename(ctx, *a.Persona, fmt.Sprintf("entry #%d", a.Position)); err != nil {
					s.logger().WarnContext(ctx, "Persona rename failed",
						"round_num", num, "position", a.Position, "error", err)
				}
			}
			return result, nil
		})
}

// Reshuffle redraws display positions during guessing, for a shuffle that
// accidentally leaked authorship order. Personas follow their authors but are
// renamed to the new slots.
func (s *Service) Reshuffle(ctx context.Context, num int64) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ReshuffleRound", strconv.FormatInt(num, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}
			if round.Stage != rounddb.StageGuessing {
				return fail(shared.NewConflictError("round %d is not in its guessing stage", num)), nil
			}

			subs, err := s.subRepo.ListByRound(ctx, nil, num)
			if err != nil {
				return roundResult{}, err
			}
			s.shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })
			assignments := make([]submissiondb.PositionAssignment, len(subs))
			for i, sub := range subs {
				assignments[i] = submissiondb.PositionAssignment{
					AuthorID: sub.AuthorID,
					Position: i + 1,
					Persona:  sub.Persona,
				}
			}

			result, err := operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (roundResult, error) {
				if err := s.subRepo.ClearPositions(ctx, db, num); err != nil {
					return roundResult{}, err
				}
				if err := s.subRepo.UpdatePositions(ctx, db, num, assignments); err != nil {
					return roundResult{}, err
				}
				return succeed(*round), nil
			})
			if err != nil || result.IsFailure() {
				return result, err
			}

			for _, a := range assignments {
				if a.Persona == nil {
					continue
				}
				if err := s.personas.Rename(ctx, *a.Persona, fmt.Sprintf("entry #%d", a.Position)); err != nil {
					s.logger().WarnContext(ctx, "Persona rename failed",
						"round_num", num, "position", a.Position, "error", err)
				}
			}
			return result, nil
		})
}

// GetByNum returns one round.
func (s *Service) GetByNum(ctx context.Context, num int64) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "GetRound", strconv.FormatInt(num, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}
			return succeed(*round), nil
		})
}

// List returns every round, newest first.
func (s *Service) List(ctx context.Context) (results.OperationResult[[]rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ListRounds", "",
		func(ctx context.Context) (results.OperationResult[[]rounddb.Round, error], error) {
			rounds, err := s.roundRepo.ListAll(ctx, nil)
			if err != nil {
				return results.OperationResult[[]rounddb.Round, error]{}, err
			}
			return results.SuccessResult[[]rounddb.Round, error](rounds), nil
		})
}
