package leaderboardservice

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// chartTopPlayers caps the number of series so the legend stays readable.
const chartTopPlayers = 8

// Chart renders cumulative totals per round for the window's top players as a
// PNG. It needs at least two completed rounds to draw a line.
func (s *Service) Chart(ctx context.Context, from, to int64) (results.OperationResult[[]byte, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "Chart", fmt.Sprintf("%d-%d", from, to),
		func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
			nums, err := s.completedWindow(ctx, from, to)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, err
			}
			if len(nums) < 2 {
				return results.FailureResult[[]byte](error(shared.NewValidationError("need at least two completed rounds to chart"))), nil
			}

			scores, err := s.scoreRepo.ListByRounds(ctx, nil, nums)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, err
			}

			totalsByRound := make(map[int64]map[int64]int)
			finals := make(map[int64]int)
			for _, sc := range scores {
				if totalsByRound[sc.RoundNum] == nil {
					totalsByRound[sc.RoundNum] = make(map[int64]int)
				}
				totalsByRound[sc.RoundNum][sc.PlayerID] = sc.Total
				finals[sc.PlayerID] += sc.Total
			}

			top := make([]int64, 0, len(finals))
			for id := range finals {
				top = append(top, id)
			}
			sort.Slice(top, func(i, j int) bool {
				if finals[top[i]] != finals[top[j]] {
					return finals[top[i]] > finals[top[j]]
				}
				return top[i] < top[j]
			})
			if len(top) > chartTopPlayers {
				top = top[:chartTopPlayers]
			}

			names, err := s.userRepo.GetNames(ctx, nil, top)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, err
			}

			series := make([]chart.Series, 0, len(top))
			for _, id := range top {
				xs := make([]float64, len(nums))
				ys := make([]float64, len(nums))
				running := 0
				for i, num := range nums {
					running += totalsByRound[num][id]
					xs[i] = float64(num)
					ys[i] = float64(running)
				}
				name := names[id]
				if name == "" {
					name = fmt.Sprintf("player %d", id)
				}
				series = append(series, chart.ContinuousSeries{
					Name:    name,
					XValues: xs,
					YValues: ys,
				})
			}

			graph := chart.Chart{
				Title:  "Cumulative totals",
				Width:  900,
				Height: 500,
				XAxis:  chart.XAxis{Name: "round"},
				YAxis:  chart.YAxis{Name: "total"},
				Series: series,
			}
			graph.Elements = []chart.Renderable{chart.LegendThin(&graph)}

			var buf bytes.Buffer
			if err := graph.Render(chart.PNG, &buf); err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to render chart: %w", err)
			}
			return results.SuccessResult[[]byte, error](buf.Bytes()), nil
		})
}
