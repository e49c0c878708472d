// Package scoreservice computes and persists round results.
//
// Scoring is deliberately a pure function over the round's guess ledger so it
// can be re-run and unit tested without a database. For each author A:
//
//	plus(A)  = correct guesses A made about others
//	minus(A) = times A's entry was correctly attributed, by anyone
//	bonus(A) = guesses about A's entry that named A's impersonation target
//	total(A) = plus + bonus - minus
//
// Only submitting authors hold score rows, but minus and bonus count guesses
// from everyone, spectators included.
//
// Ranking is competition style ("1224"), ordered by (total, plus, bonus)
// descending.
package scoreservice

import (
	"crypto/sha256"
	"math/big"
	"sort"
	"strconv"

	scoredb "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories"
)

// GuessRecord is one row of the guess ledger as the scorer sees it.
type GuessRecord struct {
	PlayerID int64
	Guess    int64
	Actual   int64
}

// ComputeScores builds the score table for a round. authors is the set of
// submitting players; targets maps an author to their impersonation target, if
// any. Rows come back ordered by rank, ties by player id.
func ComputeScores(roundNum int64, authors []int64, guesses []GuessRecord, targets map[int64]int64) []*scoredb.Score {
	byPlayer := make(map[int64]*scoredb.Score, len(authors))
	for _, id := range authors {
		byPlayer[id] = &scoredb.Score{RoundNum: roundNum, PlayerID: id}
	}

	for _, g := range guesses {
		actual, ok := byPlayer[g.Actual]
		if !ok {
			continue
		}
		if g.Guess == g.Actual {
			actual.Minus++
			// Only authors can earn plus; a spectator's correct guess
			// still costs its target.
			if guesser, ok := byPlayer[g.PlayerID]; ok {
				guesser.Plus++
			}
		}
		if target, ok := targets[g.Actual]; ok && g.Guess == target {
			actual.Bonus++
		}
	}

	scores := make([]*scoredb.Score, 0, len(byPlayer))
	for _, s := range byPlayer {
		s.Total = s.Plus + s.Bonus - s.Minus
		scores = append(scores, s)
	}

	sort.Slice(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
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

	rank := 0
	for i, s := range scores {
		if i == 0 || keyDiffers(scores[i-1], s) {
			rank = i + 1
		}
		s.Rank = rank
		s.Won = rank == 1
	}
	return scores
}

func keyDiffers(a, b *scoredb.Score) bool {
	return a.Total != b.Total || a.Plus != b.Plus || a.Bonus != b.Bonus
}

// TiebreakWinner picks one player from a tied set. The choice is a pure
// function of the round number (SHA-256 of its decimal form, taken as a
// big-endian integer, modulo the tie size over the ids sorted ascending), so
// every operator derives the same winner without coordination.
func TiebreakWinner(roundNum int64, tied []int64) int64 {
	ids := make([]int64, len(tied))
	copy(ids, tied)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sum := sha256.Sum256([]byte(strconv.FormatInt(roundNum, 10)))
	idx := new(big.Int).SetBytes(sum[:])
	idx.Mod(idx, big.NewInt(int64(len(ids))))
	return ids[idx.Int64()]
}
