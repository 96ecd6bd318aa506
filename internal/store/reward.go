package store

import (
	"database/sql"
	"fmt"

	"github.com/thornbury/seedling/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int
	err := scanner.Scan(&r.ID, &r.FamilyID, &r.Title, &r.Description, &r.SeedCost, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Active = active == 1
	return &r, nil
}

const rewardCols = `id, family_id, title, description, seed_cost, active, created_at`

func (s *RewardStore) Create(familyID int64, title, description string, seedCost int) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (family_id, title, description, seed_cost) VALUES (?, ?, ?, ?)`,
		familyID, title, description, seedCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByFamily(familyID int64, activeOnly bool) ([]model.Reward, error) {
	query := `SELECT ` + rewardCols + ` FROM rewards WHERE family_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY seed_cost, title`

	rows, err := s.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, seedCost int, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, seed_cost = ?, active = ? WHERE id = ?`,
		title, description, seedCost, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

// Redeem records a spend at the reward's current cost. The balance check
// happens in the handler; the ledger itself allows going negative.
func (s *RewardStore) Redeem(rewardID, childID int64, seedsSpent int) (*model.RewardRedemption, error) {
	result, err := s.db.Exec(
		`INSERT INTO reward_redemptions (reward_id, child_id, seeds_spent) VALUES (?, ?, ?)`,
		rewardID, childID, seedsSpent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRedemptionByID(id)
}

func (s *RewardStore) GetRedemptionByID(id int64) (*model.RewardRedemption, error) {
	row := s.db.QueryRow(
		`SELECT id, reward_id, child_id, seeds_spent, redeemed_at FROM reward_redemptions WHERE id = ?`,
		id,
	)
	var r model.RewardRedemption
	err := row.Scan(&r.ID, &r.RewardID, &r.ChildID, &r.SeedsSpent, &r.RedeemedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return &r, nil
}

func (s *RewardStore) ListRedemptionsByChild(childID int64, limit int) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT id, reward_id, child_id, seeds_spent, redeemed_at
		 FROM reward_redemptions WHERE child_id = ?
		 ORDER BY redeemed_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.RewardRedemption
	for rows.Next() {
		var r model.RewardRedemption
		if err := rows.Scan(&r.ID, &r.RewardID, &r.ChildID, &r.SeedsSpent, &r.RedeemedAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, r)
	}
	return redemptions, rows.Err()
}

// DeleteRedemption refunds a redemption by removing it from the ledger.
func (s *RewardStore) DeleteRedemption(id int64) error {
	_, err := s.db.Exec(`DELETE FROM reward_redemptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete redemption: %w", err)
	}
	return nil
}
