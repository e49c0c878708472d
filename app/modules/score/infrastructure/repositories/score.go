package scoredb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new score repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// InsertScores persists a round's computed scores.
func (r *Impl) InsertScores(ctx context.Context, db bun.IDB, scores []*Score) error {
	db = r.resolveDB(db)
	if len(scores) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&scores).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert scores: %w", err)
	}
	return nil
}

// ListByRound returns a round's scores ordered by rank, ties by player id.
func (r *Impl) ListByRound(ctx context.Context, db bun.IDB, roundNum int64) ([]Score, error) {
	db = r.resolveDB(db)
	var scores []Score
	err := db.NewSelect().
		Model(&scores).
		Where("round_num = ?", roundNum).
		Order("rank ASC", "player_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return scores, nil
}

// ListByRounds returns all scores for the given round numbers.
func (r *Impl) ListByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]Score, error) {
	db = r.resolveDB(db)
	if len(roundNums) == 0 {
		return nil, nil
	}
	var scores []Score
	err := db.NewSelect().
		Model(&scores).
		Where("round_num IN (?)", bun.In(roundNums)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores by rounds: %w", err)
	}
	return scores, nil
}

// InsertTiebreaks persists rank overrides.
func (r *Impl) InsertTiebreaks(ctx context.Context, db bun.IDB, tiebreaks []*Tiebreak) error {
	db = r.resolveDB(db)
	if len(tiebreaks) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&tiebreaks).
		On("CONFLICT (round_num, player_id) DO UPDATE").
		Set("new_rank = EXCLUDED.new_rank").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert tiebreaks: %w", err)
	}
	return nil
}

// ListTiebreaksByRounds returns rank overrides for the given rounds.
func (r *Impl) ListTiebreaksByRounds(ctx context.Context, db bun.IDB, roundNums []int64) ([]Tiebreak, error) {
	db = r.resolveDB(db)
	if len(roundNums) == 0 {
		return nil, nil
	}
	var tiebreaks []Tiebreak
	err := db.NewSelect().
		Model(&tiebreaks).
		Where("round_num IN (?)", bun.In(roundNums)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiebreaks: %w", err)
	}
	return tiebreaks, nil
}

// SetTarget records an impersonation target, replacing any previous one.
func (r *Impl) SetTarget(ctx context.Context, db bun.IDB, target *Target) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(target).
		On("CONFLICT (round_num, player_id) DO UPDATE").
		Set("target = EXCLUDED.target").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set target: %w", err)
	}
	return nil
}

// ListTargets returns a round's impersonation targets.
func (r *Impl) ListTargets(ctx context.Context, db bun.IDB, roundNum int64) ([]Target, error) {
	db = r.resolveDB(db)
	var targets []Target
	err := db.NewSelect().
		Model(&targets).
		Where("round_num = ?", roundNum).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	return targets, nil
}
