package scoreservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/operation"
)

func newTestService(scoreRepo *fakeScoreRepo, subRepo *fakeSubmissionRepo, guessRepo *fakeGuessRepo) *Service {
	return NewService(scoreRepo, subRepo, guessRepo, nil, operation.Telemetry{Service: "score"})
}

func TestScoreRound(t *testing.T) {
	var inserted []*scoredb.Score
	scoreRepo := &fakeScoreRepo{
		InsertScoresFunc: func(_ context.Context, _ bun.IDB, scores []*scoredb.Score) error {
			inserted = scores
			return nil
		},
		ListTargetsFunc: func(_ context.Context, _ bun.IDB, _ int64) ([]scoredb.Target, error) {
			return []scoredb.Target{{RoundNum: 4, PlayerID: 1, Target: 3}}, nil
		},
	}
	subRepo := &fakeSubmissionRepo{
		ListByRoundFunc: func(_ context.Context, _ bun.IDB, _ int64) ([]submissiondb.Submission, error) {
			return []submissiondb.Submission{{AuthorID: 1}, {AuthorID: 2}, {AuthorID: 3}}, nil
		},
	}
	guessRepo := &fakeGuessRepo{
		ListByRoundFunc: func(_ context.Context, _ bun.IDB, _ int64) ([]guessdb.Guess, error) {
			return []guessdb.Guess{
				{RoundNum: 4, PlayerID: 2, Guess: 1, Actual: 1},
				{RoundNum: 4, PlayerID: 2, Guess: 3, Actual: 3},
				{RoundNum: 4, PlayerID: 3, Guess: 3, Actual: 1},
			}, nil
		},
	}

	svc := newTestService(scoreRepo, subRepo, guessRepo)
	scores, err := svc.ScoreRound(context.Background(), nil, 4)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, scores, inserted)

	assert.Equal(t, int64(2), scores[0].PlayerID)
	assert.Equal(t, 1, scores[0].Rank)
	assert.True(t, scores[0].Won)
	assert.Equal(t, 2, scores[0].Plus)

	// Player 1 was guessed correctly once, and player 3's wrong guess hit
	// player 1's impersonation target.
	for _, sc := range scores {
		if sc.PlayerID == 1 {
			assert.Equal(t, 1, sc.Minus)
			assert.Equal(t, 1, sc.Bonus)
			assert.Equal(t, 0, sc.Total)
		}
	}
}

func TestScoreRoundGuessLoadError(t *testing.T) {
	guessRepo := &fakeGuessRepo{
		ListByRoundFunc: func(_ context.Context, _ bun.IDB, _ int64) ([]guessdb.Guess, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := newTestService(&fakeScoreRepo{}, &fakeSubmissionRepo{}, guessRepo)

	_, err := svc.ScoreRound(context.Background(), nil, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load guesses")
}

func TestBreakTie(t *testing.T) {
	tests := []struct {
		name       string
		scores     []scoredb.Score
		wantWinner bool
		wantErrAs  any
	}{
		{
			name: "two way tie",
			scores: []scoredb.Score{
				{RoundNum: 6, PlayerID: 10, Rank: 1, Won: true},
				{RoundNum: 6, PlayerID: 20, Rank: 1, Won: true},
				{RoundNum: 6, PlayerID: 30, Rank: 3},
			},
			wantWinner: true,
		},
		{
			name: "sole winner",
			scores: []scoredb.Score{
				{RoundNum: 6, PlayerID: 10, Rank: 1, Won: true},
				{RoundNum: 6, PlayerID: 20, Rank: 2},
			},
			wantErrAs: new(*shared.ConflictError),
		},
		{
			name:      "unscored round",
			scores:    nil,
			wantErrAs: new(*shared.NotFoundError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recorded []*scoredb.Tiebreak
			scoreRepo := &fakeScoreRepo{
				ListByRoundFunc: func(_ context.Context, _ bun.IDB, _ int64) ([]scoredb.Score, error) {
					return tt.scores, nil
				},
				InsertTiebreaksFunc: func(_ context.Context, _ bun.IDB, tiebreaks []*scoredb.Tiebreak) error {
					recorded = tiebreaks
					return nil
				},
			}
			svc := newTestService(scoreRepo, &fakeSubmissionRepo{}, &fakeGuessRepo{})

			result, err := svc.BreakTie(context.Background(), 6)
			require.NoError(t, err)

			if tt.wantErrAs != nil {
				require.True(t, result.IsFailure())
				assert.ErrorAs(t, *result.Failure, tt.wantErrAs)
				assert.Empty(t, recorded)
				return
			}

			require.True(t, result.IsSuccess())
			winner := result.Success.WinnerID
			assert.Equal(t, TiebreakWinner(6, []int64{10, 20}), winner)
			require.Len(t, recorded, 1)
			assert.NotEqual(t, winner, recorded[0].PlayerID)
			assert.Equal(t, 2, recorded[0].NewRank)
		})
	}
}

func TestApplyTiebreak(t *testing.T) {
	t.Run("shared first place leaves one effective winner", func(t *testing.T) {
		var recorded []*scoredb.Tiebreak
		scoreRepo := &fakeScoreRepo{
			InsertTiebreaksFunc: func(_ context.Context, _ bun.IDB, tiebreaks []*scoredb.Tiebreak) error {
				recorded = tiebreaks
				return nil
			},
		}
		svc := newTestService(scoreRepo, &fakeSubmissionRepo{}, &fakeGuessRepo{})

		scores := []*scoredb.Score{
			{RoundNum: 6, PlayerID: 10, Rank: 1, Won: true},
			{RoundNum: 6, PlayerID: 20, Rank: 1, Won: true},
			{RoundNum: 6, PlayerID: 30, Rank: 3},
		}
		rows, err := svc.ApplyTiebreak(context.Background(), nil, 6, scores)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, recorded, rows)
		assert.Equal(t, 2, rows[0].NewRank)
		assert.NotEqual(t, TiebreakWinner(6, []int64{10, 20}), rows[0].PlayerID)
	})

	t.Run("sole winner is a no-op", func(t *testing.T) {
		scoreRepo := &fakeScoreRepo{
			InsertTiebreaksFunc: func(_ context.Context, _ bun.IDB, _ []*scoredb.Tiebreak) error {
				t.Fatal("nothing to record for a sole winner")
				return nil
			},
		}
		svc := newTestService(scoreRepo, &fakeSubmissionRepo{}, &fakeGuessRepo{})

		rows, err := svc.ApplyTiebreak(context.Background(), nil, 6, []*scoredb.Score{
			{RoundNum: 6, PlayerID: 10, Rank: 1, Won: true},
			{RoundNum: 6, PlayerID: 20, Rank: 2},
		})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestGetRoundScoresAppliesTiebreak(t *testing.T) {
	scoreRepo := &fakeScoreRepo{
		ListByRoundFunc: func(_ context.Context, _ bun.IDB, _ int64) ([]scoredb.Score, error) {
			return []scoredb.Score{
				{RoundNum: 6, PlayerID: 10, Rank: 1, Won: true},
				{RoundNum: 6, PlayerID: 20, Rank: 1, Won: true},
			}, nil
		},
		ListTiebreaksByRoundsFunc: func(_ context.Context, _ bun.IDB, _ []int64) ([]scoredb.Tiebreak, error) {
			return []scoredb.Tiebreak{{RoundNum: 6, PlayerID: 20, NewRank: 2}}, nil
		},
	}
	svc := newTestService(scoreRepo, &fakeSubmissionRepo{}, &fakeGuessRepo{})

	result, err := svc.GetRoundScores(context.Background(), 6)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	rows := *result.Success
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].AdjustedRank)
	assert.Equal(t, 2, rows[1].AdjustedRank)
	assert.Equal(t, 1, rows[1].Rank)
}

func TestSetTargetRejectsSelf(t *testing.T) {
	svc := newTestService(&fakeScoreRepo{}, &fakeSubmissionRepo{}, &fakeGuessRepo{})

	result, err := svc.SetTarget(context.Background(), 6, 10, 10)
	require.NoError(t, err)
	require.True(t, result.IsFailure())

	var vErr *shared.ValidationError
	assert.ErrorAs(t, *result.Failure, &vErr)
}
