// Package leaderboardservice aggregates persisted round scores into standings
// over a round window, and renders them as a chart or a spreadsheet export.
// It only ever reads: scores are computed once at round completion.
package leaderboardservice

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/uptrace/bun"

	guessdb "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
	userdb "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// Entry is one player's line in the standings.
type Entry struct {
	Rank     int    `json:"rank"`
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
	Rounds   int    `json:"rounds"`
	Wins     int    `json:"wins"`
	Plus     int    `json:"plus"`
	Bonus    int    `json:"bonus"`
	Minus    int    `json:"minus"`
	Total    int    `json:"total"`
	Likes    int    `json:"likes"`
}

// Service owns the read-side aggregation.
type Service struct {
	scoreRepo scoredb.Repository
	guessRepo guessdb.Repository
	roundRepo rounddb.Repository
	userRepo  userdb.Repository
	db        *bun.DB
	tel       operation.Telemetry
}

// NewService creates a leaderboard service.
func NewService(
	scoreRepo scoredb.Repository,
	guessRepo guessdb.Repository,
	roundRepo rounddb.Repository,
	userRepo userdb.Repository,
	db *bun.DB,
	tel operation.Telemetry,
) *Service {
	return &Service{
		scoreRepo: scoreRepo,
		guessRepo: guessRepo,
		roundRepo: roundRepo,
		userRepo:  userRepo,
		db:        db,
		tel:       tel,
	}
}

// Standings aggregates completed rounds in the inclusive window [from, to].
// A tie-break demotion cancels the demoted player's recorded win; likes are a
// display column and never affect ranking.
func (s *Service) Standings(ctx context.Context, from, to int64) (results.OperationResult[[]Entry, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "Standings", fmt.Sprintf("%d-%d", from, to),
		func(ctx context.Context) (results.OperationResult[[]Entry, error], error) {
			entries, err := s.standings(ctx, from, to)
			if err != nil {
				return results.OperationResult[[]Entry, error]{}, err
			}
			return results.SuccessResult[[]Entry, error](entries), nil
		})
}

func (s *Service) standings(ctx context.Context, from, to int64) ([]Entry, error) {
	nums, err := s.completedWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return []Entry{}, nil
	}

	scores, err := s.scoreRepo.ListByRounds(ctx, nil, nums)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	tiebreaks, err := s.scoreRepo.ListTiebreaksByRounds(ctx, nil, nums)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiebreaks: %w", err)
	}
	demoted := make(map[[2]int64]bool, len(tiebreaks))
	for _, tb := range tiebreaks {
		if tb.NewRank > 1 {
			demoted[[2]int64{tb.RoundNum, tb.PlayerID}] = true
		}
	}

	byPlayer := make(map[int64]*Entry)
	for _, sc := range scores {
		e, ok := byPlayer[sc.PlayerID]
		if !ok {
			e = &Entry{PlayerID: sc.PlayerID}
			byPlayer[sc.PlayerID] = e
		}
		e.Rounds++
		e.Plus += sc.Plus
		e.Bonus += sc.Bonus
		e.Minus += sc.Minus
		e.Total += sc.Total
		if sc.Won && !demoted[[2]int64{sc.RoundNum, sc.PlayerID}] {
			e.Wins++
		}
	}

	// Likes are bounded by the last completed round in the window, which
	// also resolves an open-ended upper bound.
	likes, err := s.guessRepo.LikesReceived(ctx, nil, from, nums[len(nums)-1])
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	ids := make([]int64, 0, len(byPlayer))
	for id, e := range byPlayer {
		e.Likes = likes[id]
		ids = append(ids, id)
	}
	names, err := s.userRepo.GetNames(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve names: %w", err)
	}

	entries := make([]Entry, 0, len(byPlayer))
	for _, e := range byPlayer {
		e.Name = names[e.PlayerID]
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Plus != b.Plus {
			return a.Plus > b.Plus
		}
		if a.Bonus != b.Bonus {
			return a.Bonus > b.Bonus
		}
		return a.PlayerID < b.PlayerID
	})
	// Plus and bonus only order the display; the cumulative rank is keyed
	// by total alone.
	rank := 0
	for i := range entries {
		if i == 0 || entries[i-1].Total != entries[i].Total {
			rank = i + 1
		}
		entries[i].Rank = rank
	}
	return entries, nil
}

// completedWindow lists the completed rounds in [from, to]. A non-positive
// upper bound means "through the latest completed round".
func (s *Service) completedWindow(ctx context.Context, from, to int64) ([]int64, error) {
	if to <= 0 {
		to = math.MaxInt64
	}
	nums, err := s.roundRepo.ListCompletedNums(ctx, nil, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed rounds: %w", err)
	}
	filtered := nums[:0]
	for _, n := range nums {
		if n >= from {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}
