// Package guessservice manages the guess ledger and the like toggles. A
// guess set is replaced wholesale on resubmission, the same way entry files
// are.
package guessservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/events"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// Service owns guesses, likes and the finished-guessing flag.
type Service struct {
	guessRepo guessdb.Repository
	subRepo   submissiondb.Repository
	roundRepo rounddb.Repository
	publisher events.Publisher
	db        *bun.DB
	tel       operation.Telemetry
}

// NewService creates a guess service.
func NewService(
	guessRepo guessdb.Repository,
	subRepo submissiondb.Repository,
	roundRepo rounddb.Repository,
	publisher events.Publisher,
	db *bun.DB,
	tel operation.Telemetry,
) *Service {
	return &Service{
		guessRepo: guessRepo,
		subRepo:   subRepo,
		roundRepo: roundRepo,
		publisher: publisher,
		db:        db,
		tel:       tel,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.tel.Logger != nil {
		return s.tel.Logger
	}
	return slog.Default()
}

// guessingRound loads the round and checks it is accepting guesses.
func (s *Service) guessingRound(ctx context.Context, roundNum int64) (*rounddb.Round, error, error) {
	round, err := s.roundRepo.GetByNum(ctx, nil, roundNum)
	if err != nil {
		if errors.Is(err, rounddb.ErrNotFound) {
			return nil, shared.NewNotFoundError("round %d does not exist", roundNum), nil
		}
		return nil, nil, err
	}
	if round.Stage != rounddb.StageGuessing {
		return nil, shared.NewValidationError("round %d is not in its guessing stage", roundNum), nil
	}
	return round, nil, nil
}

// Pick is one slot of a submitted guess set: the guessed person and the
// client's locked bit for that slot. Locked is pure UI state, a pin against
// future reshuffles, echoed back on reads but never enforced server-side.
type Pick struct {
	Guess  int64
	Locked bool
}

// SubmitGuesses replaces the caller's guess set with picks, a map of display
// position to pick: all prior guesses are deleted and the new set inserted.
// Picks that resolve to the caller's own entry are dropped silently (the UI
// sends "me" for that slot).
func (s *Service) SubmitGuesses(ctx context.Context, roundNum, playerID int64, picks map[int]Pick) (results.OperationResult[[]guessdb.Guess, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "SubmitGuesses", strconv.FormatInt(playerID, 10),
		func(ctx context.Context) (results.OperationResult[[]guessdb.Guess, error], error) {
			if _, failure, err := s.guessingRound(ctx, roundNum); failure != nil || err != nil {
				if err != nil {
					return results.OperationResult[[]guessdb.Guess, error]{}, err
				}
				return results.FailureResult[[]guessdb.Guess](failure), nil
			}

			return operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]guessdb.Guess, error], error) {
				var rows []*guessdb.Guess
				for position, pick := range picks {
					sub, err := s.subRepo.GetByPosition(ctx, db, roundNum, position)
					if err != nil {
						if errors.Is(err, submissiondb.ErrNotFound) {
							return results.FailureResult[[]guessdb.Guess](error(shared.NewValidationError("no entry at position %d", position))), nil
						}
						return results.OperationResult[[]guessdb.Guess, error]{}, err
					}
					// Your own entry is never a guess, whatever the UI sent.
					if sub.AuthorID == playerID {
						continue
					}
					rows = append(rows, &guessdb.Guess{
						RoundNum: roundNum,
						PlayerID: playerID,
						Guess:    pick.Guess,
						Actual:   sub.AuthorID,
						Locked:   pick.Locked,
					})
				}

				if err := s.guessRepo.DeleteByGuesser(ctx, db, roundNum, playerID); err != nil {
					return results.OperationResult[[]guessdb.Guess, error]{}, err
				}
				if err := s.guessRepo.Insert(ctx, db, rows); err != nil {
					return results.OperationResult[[]guessdb.Guess, error]{}, err
				}

				saved := make([]guessdb.Guess, len(rows))
				for i, g := range rows {
					saved[i] = *g
				}
				return results.SuccessResult[[]guessdb.Guess, error](saved), nil
			})
		})
}

// GuessView is one of the caller's guesses keyed by display position. The
// actual author stays server-side until the round completes.
type GuessView struct {
	Position int   `json:"position"`
	Guess    int64 `json:"guess"`
	Locked   bool  `json:"locked"`
}

// MyGuesses returns the caller's current guess set, keyed by the entries'
// display positions. Guesses whose target entry was disqualified out of the
// position list are omitted.
func (s *Service) MyGuesses(ctx context.Context, roundNum, playerID int64) (results.OperationResult[[]GuessView, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "MyGuesses", strconv.FormatInt(playerID, 10),
		func(ctx context.Context) (results.OperationResult[[]GuessView, error], error) {
			guesses, err := s.guessRepo.ListByGuesser(ctx, nil, roundNum, playerID)
			if err != nil {
				return results.OperationResult[[]GuessView, error]{}, err
			}
			subs, err := s.subRepo.ListByRound(ctx, nil, roundNum)
			if err != nil {
				return results.OperationResult[[]GuessView, error]{}, err
			}
			positions := make(map[int64]int, len(subs))
			for _, sub := range subs {
				if sub.Position != nil {
					positions[sub.AuthorID] = *sub.Position
				}
			}

			views := make([]GuessView, 0, len(guesses))
			for _, g := range guesses {
				pos, ok := positions[g.Actual]
				if !ok {
					continue
				}
				views = append(views, GuessView{Position: pos, Guess: g.Guess, Locked: g.Locked})
			}
			sort.Slice(views, func(i, j int) bool { return views[i].Position < views[j].Position })
			return results.SuccessResult[[]GuessView, error](views), nil
		})
}

// ToggleFinished flips the caller's done-guessing flag. When the last
// participant flips theirs on, an event nudges the admins; nothing
// transitions automatically.
func (s *Service) ToggleFinished(ctx context.Context, roundNum, playerID int64) (results.OperationResult[bool, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ToggleFinished", strconv.FormatInt(playerID, 10),
		func(ctx context.Context) (results.OperationResult[bool, error], error) {
			if _, failure, err := s.guessingRound(ctx, roundNum); failure != nil || err != nil {
				if err != nil {
					return results.OperationResult[bool, error]{}, err
				}
				return results.FailureResult[bool](failure), nil
			}

			sub, err := s.subRepo.Get(ctx, nil, roundNum, playerID)
			if err != nil {
				if errors.Is(err, submissiondb.ErrNotFound) {
					return results.FailureResult[bool](error(shared.NewForbiddenError("only participants can flag themselves done"))), nil
				}
				return results.OperationResult[bool, error]{}, err
			}

			finished := !sub.FinishedGuessing
			allDone, err := s.subRepo.SetFinishedGuessing(ctx, nil, roundNum, playerID, finished)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if finished && allDone {
				if err := s.publisher.Publish(events.EveryoneFinished, events.EveryoneFinishedPayload{RoundNum: roundNum}); err != nil {
					s.logger().WarnContext(ctx, "Failed to publish event",
						"topic", events.EveryoneFinished, "error", err)
				}
			}
			return results.SuccessResult[bool, error](finished), nil
		})
}

// ToggleLike flips the caller's like on the entry at position and reports
// whether it is now set. Liking your own entry is refused.
func (s *Service) ToggleLike(ctx context.Context, roundNum, playerID int64, position int) (results.OperationResult[bool, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ToggleLike", fmt.Sprintf("%d/%d", playerID, position),
		func(ctx context.Context) (results.OperationResult[bool, error], error) {
			if _, failure, err := s.guessingRound(ctx, roundNum); failure != nil || err != nil {
				if err != nil {
					return results.OperationResult[bool, error]{}, err
				}
				return results.FailureResult[bool](failure), nil
			}

			sub, err := s.subRepo.GetByPosition(ctx, nil, roundNum, position)
			if err != nil {
				if errors.Is(err, submissiondb.ErrNotFound) {
					return results.FailureResult[bool](error(shared.NewNotFoundError("no entry at position %d", position))), nil
				}
				return results.OperationResult[bool, error]{}, err
			}
			if sub.AuthorID == playerID {
				return results.FailureResult[bool](error(shared.NewValidationError("cannot like your own entry"))), nil
			}

			nowSet, err := s.guessRepo.ToggleLike(ctx, nil, roundNum, playerID, sub.AuthorID)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			return results.SuccessResult[bool, error](nowSet), nil
		})
}
