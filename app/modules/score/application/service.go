package scoreservice

import (
	"context"
	"fmt"
	"strconv"

	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// Service owns score computation and the tie-break ceremony.
type Service struct {
	scoreRepo scoredb.Repository
	subRepo   submissiondb.Repository
	guessRepo guessdb.Repository
	db        *bun.DB
	tel       operation.Telemetry
}

// NewService creates a score service.
func NewService(
	scoreRepo scoredb.Repository,
	subRepo submissiondb.Repository,
	guessRepo guessdb.Repository,
	db *bun.DB,
	tel operation.Telemetry,
) *Service {
	return &Service{
		scoreRepo: scoreRepo,
		subRepo:   subRepo,
		guessRepo: guessRepo,
		db:        db,
		tel:       tel,
	}
}

// ScoreRound computes and persists a round's scores on the given handle. It is
// called from round completion inside that operation's transaction, so it
// takes the handle rather than opening its own.
func (s *Service) ScoreRound(ctx context.Context, db bun.IDB, roundNum int64) ([]*scoredb.Score, error) {
	subs, err := s.subRepo.ListByRound(ctx, db, roundNum)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions for scoring: %w", err)
	}
	authors := make([]int64, 0, len(subs))
	for _, sub := range subs {
		authors = append(authors, sub.AuthorID)
	}

	guesses, err := s.guessRepo.ListByRound(ctx, db, roundNum)
	if err != nil {
		return nil, fmt.Errorf("failed to load guesses for scoring: %w", err)
	}
	records := make([]GuessRecord, 0, len(guesses))
	for _, g := range guesses {
		records = append(records, GuessRecord{PlayerID: g.PlayerID, Guess: g.Guess, Actual: g.Actual})
	}

	targetRows, err := s.scoreRepo.ListTargets(ctx, db, roundNum)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets for scoring: %w", err)
	}
	targets := make(map[int64]int64, len(targetRows))
	for _, t := range targetRows {
		targets[t.PlayerID] = t.Target
	}

	scores := ComputeScores(roundNum, authors, records, targets)
	if err := s.scoreRepo.InsertScores(ctx, db, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// ScoreboardRow is one line of a round's scoreboard, with any tie-break
// applied on top of the computed rank.
type ScoreboardRow struct {
	scoredb.Score
	AdjustedRank int `json:"adjusted_rank"`
}

// GetRoundScores returns a round's scoreboard with tie-break overrides
// applied.
func (s *Service) GetRoundScores(ctx context.Context, roundNum int64) (results.OperationResult[[]ScoreboardRow, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "GetRoundScores", strconv.FormatInt(roundNum, 10),
		func(ctx context.Context) (results.OperationResult[[]ScoreboardRow, error], error) {
			scores, err := s.scoreRepo.ListByRound(ctx, nil, roundNum)
			if err != nil {
				return results.OperationResult[[]ScoreboardRow, error]{}, err
			}
			tiebreaks, err := s.scoreRepo.ListTiebreaksByRounds(ctx, nil, []int64{roundNum})
			if err != nil {
				return results.OperationResult[[]ScoreboardRow, error]{}, err
			}
			overrides := make(map[int64]int, len(tiebreaks))
			for _, tb := range tiebreaks {
				overrides[tb.PlayerID] = tb.NewRank
			}
			rows := make([]ScoreboardRow, 0, len(scores))
			for _, sc := range scores {
				row := ScoreboardRow{Score: sc, AdjustedRank: sc.Rank}
				if nr, ok := overrides[sc.PlayerID]; ok {
					row.AdjustedRank = nr
				}
				rows = append(rows, row)
			}
			return results.SuccessResult[[]ScoreboardRow, error](rows), nil
		})
}

// tiebreakRows picks the surviving winner among tied and builds the demotion
// rows for everyone else.
func tiebreakRows(roundNum int64, tied []int64) (int64, []*scoredb.Tiebreak) {
	winner := TiebreakWinner(roundNum, tied)
	var rows []*scoredb.Tiebreak
	for _, id := range tied {
		if id == winner {
			continue
		}
		rows = append(rows, &scoredb.Tiebreak{RoundNum: roundNum, PlayerID: id, NewRank: 2})
	}
	return winner, rows
}

// ApplyTiebreak demotes all but one of a shared first place, recording the
// overrides on the caller's transaction handle. Round completion runs it
// right after scoring; with a sole winner it is a no-op.
func (s *Service) ApplyTiebreak(ctx context.Context, db bun.IDB, roundNum int64, scores []*scoredb.Score) ([]*scoredb.Tiebreak, error) {
	var tied []int64
	for _, sc := range scores {
		if sc.Rank == 1 {
			tied = append(tied, sc.PlayerID)
		}
	}
	if len(tied) <= 1 {
		return nil, nil
	}
	_, rows := tiebreakRows(roundNum, tied)
	if err := s.scoreRepo.InsertTiebreaks(ctx, db, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// TiebreakResult names the winner of a broken tie.
type TiebreakResult struct {
	RoundNum int64   `json:"round_num"`
	WinnerID int64   `json:"winner_id"`
	Losers   []int64 `json:"losers"`
}

// BreakTie resolves a shared first place by hand, for rounds completed before
// the automatic tie-break existed or whose overrides were cleared. The
// deterministically chosen winner keeps rank 1; every other tied player gets
// an override rank of 2. With a sole winner there is nothing to break.
func (s *Service) BreakTie(ctx context.Context, roundNum int64) (results.OperationResult[TiebreakResult, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "BreakTie", strconv.FormatInt(roundNum, 10),
		func(ctx context.Context) (results.OperationResult[TiebreakResult, error], error) {
			return operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[TiebreakResult, error], error) {
				scores, err := s.scoreRepo.ListByRound(ctx, db, roundNum)
				if err != nil {
					return results.OperationResult[TiebreakResult, error]{}, err
				}
				var tied []int64
				for _, sc := range scores {
					if sc.Rank == 1 {
						tied = append(tied, sc.PlayerID)
					}
				}
				if len(tied) == 0 {
					return results.FailureResult[TiebreakResult](error(shared.NewNotFoundError("round %d has no scores", roundNum))), nil
				}
				if len(tied) == 1 {
					return results.FailureResult[TiebreakResult](error(shared.NewConflictError("round %d has a sole winner", roundNum))), nil
				}

				winner, tiebreaks := tiebreakRows(roundNum, tied)
				losers := make([]int64, 0, len(tiebreaks))
				for _, tb := range tiebreaks {
					losers = append(losers, tb.PlayerID)
				}
				if err := s.scoreRepo.InsertTiebreaks(ctx, db, tiebreaks); err != nil {
					return results.OperationResult[TiebreakResult, error]{}, err
				}
				return results.SuccessResult[TiebreakResult, error](TiebreakResult{
					RoundNum: roundNum,
					WinnerID: winner,
					Losers:   losers,
				}), nil
			})
		})
}

// SetTarget records who a player's submission impersonates this round.
func (s *Service) SetTarget(ctx context.Context, roundNum, playerID, targetID int64) (results.OperationResult[scoredb.Target, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "SetTarget", strconv.FormatInt(playerID, 10),
		func(ctx context.Context) (results.OperationResult[scoredb.Target, error], error) {
			if playerID == targetID {
				return results.FailureResult[scoredb.Target](error(shared.NewValidationError("cannot impersonate yourself"))), nil
			}
			target := &scoredb.Target{RoundNum: roundNum, PlayerID: playerID, Target: targetID}
			if err := s.scoreRepo.SetTarget(ctx, nil, target); err != nil {
				return results.OperationResult[scoredb.Target, error]{}, err
			}
			return results.SuccessResult[scoredb.Target, error](*target), nil
		})
}
