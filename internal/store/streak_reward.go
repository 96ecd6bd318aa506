package store

import (
	"database/sql"
	"fmt"

	"github.com/thornbury/seedling/internal/model"
)

// StreakRewardStore serves the bonus history views; issuance goes through
// the Ledger.
type StreakRewardStore struct {
	db *sql.DB
}

func NewStreakRewardStore(db *sql.DB) *StreakRewardStore {
	return &StreakRewardStore{db: db}
}

func scanStreakReward(scanner interface{ Scan(...any) error }) (*model.StreakReward, error) {
	var r model.StreakReward
	err := scanner.Scan(
		&r.ID, &r.ChildID, &r.FamilyID, &r.Period, &r.StreakValue, &r.SeedsEarned,
		&r.StreakStartDate, &r.AwardedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const streakRewardCols = `id, child_id, family_id, period, streak_value, seeds_earned, streak_start_date, awarded_at`

func (s *StreakRewardStore) ListByChild(childID int64, limit int) ([]model.StreakReward, error) {
	rows, err := s.db.Query(
		`SELECT `+streakRewardCols+` FROM streak_rewards WHERE child_id = ? ORDER BY awarded_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list streak rewards: %w", err)
	}
	defer rows.Close()
	return collectStreakRewards(rows)
}

func (s *StreakRewardStore) ListByFamily(familyID int64, limit int) ([]model.StreakReward, error) {
	rows, err := s.db.Query(
		`SELECT `+streakRewardCols+` FROM streak_rewards WHERE family_id = ? ORDER BY awarded_at DESC, id DESC LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list streak rewards: %w", err)
	}
	defer rows.Close()
	return collectStreakRewards(rows)
}

func collectStreakRewards(rows *sql.Rows) ([]model.StreakReward, error) {
	var rewards []model.StreakReward
	for rows.Next() {
		r, err := scanStreakReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan streak reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}
