package roundservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	submissiondb "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/events"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/config"
)

type testDeps struct {
	roundRepo   *fakeRoundRepo
	subRepo     *fakeSubmissionRepo
	guessRepo   *fakeGuessRepo
	commentRepo *fakeCommentRepo
	scorer      *fakeScorer
	personas    *fakePersona
	publisher   *capturingPublisher
	backups     *countingBackup
}

func newTestDeps() *testDeps {
	return &testDeps{
		roundRepo:   &fakeRoundRepo{},
		subRepo:     &fakeSubmissionRepo{},
		guessRepo:   &fakeGuessRepo{},
		commentRepo: &fakeCommentRepo{},
		scorer:      &fakeScorer{},
		personas:    &fakePersona{},
		publisher:   &capturingPublisher{},
		backups:     &countingBackup{},
	}
}

func (d *testDeps) service() *Service {
	cfg := config.RoundsConfig{
		WritingDuration:  7 * 24 * time.Hour,
		GuessingDuration: 4 * 24 * time.Hour,
		NextRoundDelay:   3 * 24 * time.Hour,
	}
	svc := NewService(d.roundRepo, d.subRepo, d.guessRepo, d.commentRepo, d.scorer,
		d.personas, d.publisher, d.backups, nil, cfg, operation.Telemetry{Service: "round"})
	// Identity shuffle keeps position assignment deterministic.
	svc.shuffle = func(int, func(i, j int)) {}
	return svc
}

func roundFixture(num int64, stage rounddb.Stage) *fakeRoundRepo {
	return &fakeRoundRepo{
		GetByNumFunc: func(_ context.Context, _ bun.IDB, n int64) (*rounddb.Round, error) {
			if n != num {
				return nil, rounddb.ErrNotFound
			}
			return &rounddb.Round{Num: num, Stage: stage}, nil
		},
	}
}

func TestCreateRefusesSecondActiveRound(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo.GetActiveFunc = func(_ context.Context, _ bun.IDB) (*rounddb.Round, error) {
		return &rounddb.Round{Num: 4, Stage: rounddb.StageWriting}, nil
	}

	result, err := deps.service().Create(context.Background(), "write a quine", 0)
	require.NoError(t, err)
	require.True(t, result.IsFailure())

	var cErr *shared.ConflictError
	assert.ErrorAs(t, *result.Failure, &cErr)
}

func TestCreateOpensPendingRound(t *testing.T) {
	deps := newTestDeps()
	var inserted *rounddb.Round
	deps.roundRepo.InsertFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
		r.Num = 5
		inserted = r
		return nil
	}

	result, err := deps.service().Create(context.Background(), "write a quine", 48*time.Hour)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, int64(5), result.Success.Num)
	assert.Equal(t, rounddb.StagePending, inserted.Stage)
	assert.Equal(t, "write a quine", inserted.Spec)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), inserted.StartedAt, time.Second)
}

func TestStart(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StagePending)
	var updated *rounddb.Round
	deps.roundRepo.UpdateFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
		updated = r
		return nil
	}

	result, err := deps.service().Start(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	assert.Equal(t, rounddb.StageWriting, updated.Stage)
	assert.False(t, updated.StartedAt.IsZero())
	require.NotNil(t, updated.WritingDeadline)
	assert.WithinDuration(t, updated.StartedAt.Add(7*24*time.Hour), *updated.WritingDeadline, time.Second)

	require.Len(t, deps.publisher.topics, 1)
	assert.Equal(t, events.RoundStarted, deps.publisher.topics[0])
}

func TestStartWrongStage(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageGuessing)

	result, err := deps.service().Start(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsFailure())
	assert.Empty(t, deps.publisher.topics)
}

func TestUnstart(t *testing.T) {
	t.Run("refused once submissions exist", func(t *testing.T) {
		deps := newTestDeps()
		deps.roundRepo = roundFixture(5, rounddb.StageWriting)
		deps.subRepo.CountByRoundFunc = func(_ context.Context, _ bun.IDB, _ int64) (int, error) {
			return 2, nil
		}

		result, err := deps.service().Unstart(context.Background(), 5)
		require.NoError(t, err)
		require.True(t, result.IsFailure())
		var cErr *shared.ConflictError
		assert.ErrorAs(t, *result.Failure, &cErr)
	})

	t.Run("reverts an empty round", func(t *testing.T) {
		deps := newTestDeps()
		deps.roundRepo = roundFixture(5, rounddb.StageWriting)
		var updated *rounddb.Round
		deps.roundRepo.UpdateFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
			updated = r
			return nil
		}

		result, err := deps.service().Unstart(context.Background(), 5)
		require.NoError(t, err)
		require.True(t, result.IsSuccess())
		assert.Equal(t, rounddb.StagePending, updated.Stage)
		assert.True(t, updated.StartedAt.IsZero())
		assert.Nil(t, updated.WritingDeadline)
	})
}

func TestAdvanceToGuessing(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageWriting)
	var updated *rounddb.Round
	deps.roundRepo.UpdateFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
		updated = r
		return nil
	}
	deps.subRepo.ListByRoundFunc = func(_ context.Context, _ bun.IDB, _ int64) ([]submissiondb.Submission, error) {
		return []submissiondb.Submission{{AuthorID: 30}, {AuthorID: 10}, {AuthorID: 20}}, nil
	}
	var assigned []submissiondb.PositionAssignment
	deps.subRepo.UpdatePositionsFunc = func(_ context.Context, _ bun.IDB, _ int64, a []submissiondb.PositionAssignment) error {
		assigned = a
		return nil
	}
	issued := map[int64]string{}
	deps.personas.IssueFunc = func(_ context.Context, userID int64, name string) (string, error) {
		token := "tok-" + name
		issued[userID] = token
		return token, nil
	}

	result, err := deps.service().AdvanceToGuessing(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	assert.Equal(t, rounddb.StageGuessing, updated.Stage)
	require.NotNil(t, updated.Stage2At)
	require.NotNil(t, updated.GuessingDeadline)

	require.Len(t, assigned, 3)
	for i, a := range assigned {
		assert.Equal(t, i+1, a.Position)
		require.NotNil(t, a.Persona)
		assert.Equal(t, issued[a.AuthorID], *a.Persona)
	}

	assert.Equal(t, []int64{5}, deps.backups.calls)
	require.Len(t, deps.publisher.topics, 1)
	assert.Equal(t, events.RoundGuessing, deps.publisher.topics[0])
}

func TestAdvanceToGuessingNeedsSubmissions(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageWriting)

	result, err := deps.service().AdvanceToGuessing(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsFailure())

	var vErr *shared.ValidationError
	assert.ErrorAs(t, *result.Failure, &vErr)
}

func TestAdvanceToGuessingPersonaOutageDegrades(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageWriting)
	deps.subRepo.ListByRoundFunc = func(_ context.Context, _ bun.IDB, _ int64) ([]submissiondb.Submission, error) {
		return []submissiondb.Submission{{AuthorID: 10}}, nil
	}
	var assigned []submissiondb.PositionAssignment
	deps.subRepo.UpdatePositionsFunc = func(_ context.Context, _ bun.IDB, _ int64, a []submissiondb.PositionAssignment) error {
		assigned = a
		return nil
	}
	deps.personas.IssueFunc = func(_ context.Context, _ int64, _ string) (string, error) {
		return "", errors.New("canon is down")
	}

	result, err := deps.service().AdvanceToGuessing(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	require.Len(t, assigned, 1)
	require.NotNil(t, assigned[0].Persona)
	assert.NotEmpty(t, *assigned[0].Persona)
}

func TestComplete(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageGuessing)
	var updated *rounddb.Round
	deps.roundRepo.UpdateFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
		updated = r
		return nil
	}
	var nextInserted *rounddb.Round
	deps.roundRepo.InsertFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
		r.Num = 6
		nextInserted = r
		return nil
	}
	scored := false
	deps.scorer.ScoreRoundFunc = func(_ context.Context, _ bun.IDB, num int64) ([]*scoredb.Score, error) {
		scored = true
		return []*scoredb.Score{{RoundNum: num, PlayerID: 10, Rank: 1, Won: true}}, nil
	}
	deanonymized := false
	deps.commentRepo.DeanonymizeRoundFunc = func(_ context.Context, _ bun.IDB, _ int64) error {
		deanonymized = true
		return nil
	}

	result, err := deps.service().Complete(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	assert.Equal(t, rounddb.StageCompleted, updated.Stage)
	require.NotNil(t, updated.EndedAt)
	assert.True(t, scored)
	assert.True(t, deanonymized)
	assert.Equal(t, rounddb.StagePending, nextInserted.Stage)
	assert.WithinDuration(t, time.Now().Add(3*24*time.Hour), nextInserted.StartedAt, time.Second)
	assert.Equal(t, int64(6), result.Success.NextRound.Num)
	require.Len(t, result.Success.Scores, 1)
	assert.Empty(t, result.Success.Tiebreaks)

	assert.Equal(t, []int64{5}, deps.backups.calls)
	assert.Equal(t, 1, deps.personas.purged)
	require.Len(t, deps.publisher.topics, 1)
	assert.Equal(t, events.RoundCompleted, deps.publisher.topics[0])
}

func TestCompleteBreaksTiedWinners(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageGuessing)
	deps.scorer.ScoreRoundFunc = func(_ context.Context, _ bun.IDB, num int64) ([]*scoredb.Score, error) {
		return []*scoredb.Score{
			{RoundNum: num, PlayerID: 10, Rank: 1, Won: true},
			{RoundNum: num, PlayerID: 20, Rank: 1, Won: true},
			{RoundNum: num, PlayerID: 30, Rank: 3},
		}, nil
	}
	var brokeFor []*scoredb.Score
	deps.scorer.ApplyTiebreakFunc = func(_ context.Context, _ bun.IDB, num int64, scores []*scoredb.Score) ([]*scoredb.Tiebreak, error) {
		brokeFor = scores
		return []*scoredb.Tiebreak{{RoundNum: num, PlayerID: 20, NewRank: 2}}, nil
	}

	result, err := deps.service().Complete(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	// The tie-break ran on the freshly computed scores, in the same
	// operation, and left exactly one effective winner.
	require.Len(t, brokeFor, 3)
	require.Len(t, result.Success.Tiebreaks, 1)
	demoted := map[int64]bool{}
	for _, tb := range result.Success.Tiebreaks {
		demoted[tb.PlayerID] = true
	}
	winners := 0
	for _, sc := range result.Success.Scores {
		if sc.Won && !demoted[sc.PlayerID] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestCompleteWrongStage(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageWriting)

	result, err := deps.service().Complete(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsFailure())
	assert.Equal(t, 0, deps.personas.purged)
}

func TestCompleteScoringErrorAborts(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageGuessing)
	deps.scorer.ScoreRoundFunc = func(_ context.Context, _ bun.IDB, _ int64) ([]*scoredb.Score, error) {
		return nil, errors.New("scores table is gone")
	}

	_, err := deps.service().Complete(context.Background(), 5)
	require.Error(t, err)
	assert.Empty(t, deps.backups.calls)
	assert.Equal(t, 0, deps.personas.purged)
	assert.Empty(t, deps.publisher.topics)
}

func TestDisqualifyRenumbersPositions(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageGuessing)
	tok2, tok3 := "tok-2", "tok-3"
	deps.subRepo.GetFunc = func(_ context.Context, _ bun.IDB, _, authorID int64) (*submissiondb.Submission, error) {
		return &submissiondb.Submission{RoundNum: 5, AuthorID: authorID}, nil
	}
	deps.subRepo.ListByRoundFunc = func(_ context.Context, _ bun.IDB, _ int64) ([]submissiondb.Submission, error) {
		// Author 10 (position 1) is already gone; 2 and 3 remain.
		return []submissiondb.Submission{
			{RoundNum: 5, AuthorID: 20, Position: ptr(2), Persona: &tok2},
			{RoundNum: 5, AuthorID: 30, Position: ptr(3), Persona: &tok3},
		}, nil
	}
	var assigned []submissiondb.PositionAssignment
	deps.subRepo.UpdatePositionsFunc = func(_ context.Context, _ bun.IDB, _ int64, a []submissiondb.PositionAssignment) error {
		assigned = a
		return nil
	}
	deletedGuessesFor := []int64{}
	deps.guessRepo.DeleteByActualFunc = func(_ context.Context, _ bun.IDB, _, actual int64) error {
		deletedGuessesFor = append(deletedGuessesFor, actual)
		return nil
	}
	deps.guessRepo.DeleteByGuesserFunc = func(_ context.Context, _ bun.IDB, _, playerID int64) error {
		t.Errorf("guesses made by %d about others must survive disqualification", playerID)
		return nil
	}
	renames := map[string]string{}
	deps.personas.RenameFunc = func(_ context.Context, token, name string) error {
		renames[token] = name
		return nil
	}

	result, err := deps.service().Disqualify(context.Background(), 5, 10)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	assert.Equal(t, []int64{10}, deletedGuessesFor)
	require.Len(t, assigned, 2)
	assert.Equal(t, 1, assigned[0].Position)
	assert.Equal(t, int64(20), assigned[0].AuthorID)
	assert.Equal(t, 2, assigned[1].Position)
	assert.Equal(t, "entry #1", renames[tok2])
	assert.Equal(t, "entry #2", renames[tok3])
}

func TestDisqualifyUnknownAuthor(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageWriting)

	result, err := deps.service().Disqualify(context.Background(), 5, 99)
	require.NoError(t, err)
	require.True(t, result.IsFailure())

	var nErr *shared.NotFoundError
	assert.ErrorAs(t, *result.Failure, &nErr)
}

func TestReshuffleWrongStage(t *testing.T) {
	deps := newTestDeps()
	deps.roundRepo = roundFixture(5, rounddb.StageWriting)

	result, err := deps.service().Reshuffle(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, result.IsFailure())
}

func TestExtend(t *testing.T) {
	future := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	t.Run("writing deadline", func(t *testing.T) {
		deps := newTestDeps()
		deps.roundRepo = roundFixture(5, rounddb.StageWriting)
		var updated *rounddb.Round
		deps.roundRepo.UpdateFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
			updated = r
			return nil
		}

		result, err := deps.service().Extend(context.Background(), 5, future)
		require.NoError(t, err)
		require.True(t, result.IsSuccess())
		require.NotNil(t, updated.WritingDeadline)
		assert.Nil(t, updated.GuessingDeadline)

		require.Len(t, deps.publisher.topics, 1)
		payload := deps.publisher.payloads[0].(events.RoundExtendedPayload)
		assert.Equal(t, "writing", payload.Field)
	})

	t.Run("completed round refused", func(t *testing.T) {
		deps := newTestDeps()
		deps.roundRepo = roundFixture(5, rounddb.StageCompleted)

		result, err := deps.service().Extend(context.Background(), 5, future)
		require.NoError(t, err)
		require.True(t, result.IsFailure())
	})

	t.Run("unparseable phrase refused", func(t *testing.T) {
		deps := newTestDeps()
		deps.roundRepo = roundFixture(5, rounddb.StageWriting)

		result, err := deps.service().Extend(context.Background(), 5, "gibberish words")
		require.NoError(t, err)
		require.True(t, result.IsFailure())
	})

	t.Run("past date shortens the stage", func(t *testing.T) {
		deps := newTestDeps()
		deps.roundRepo = roundFixture(5, rounddb.StageGuessing)
		var updated *rounddb.Round
		deps.roundRepo.UpdateFunc = func(_ context.Context, _ bun.IDB, r *rounddb.Round) error {
			updated = r
			return nil
		}

		result, err := deps.service().Extend(context.Background(), 5, "2001-01-01T00:00:00Z")
		require.NoError(t, err)
		require.True(t, result.IsSuccess())
		require.NotNil(t, updated.GuessingDeadline)
		assert.Equal(t, time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), updated.GuessingDeadline.UTC())
	})
}

func TestParseDeadline(t *testing.T) {
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	got, err := ParseDeadline("2026-09-05T10:00:00Z", base)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC), got)

	got, err = ParseDeadline("tomorrow", base)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 1).Day(), got.Day())

	_, err = ParseDeadline("gibberish words", base)
	require.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
