package store

import (
	"database/sql"
	"fmt"

	"github.com/thornbury/seedling/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

// --- Family methods ---

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	err := scanner.Scan(
		&f.ID, &f.Name, &f.Timezone,
		&f.DailyStreakReward, &f.WeeklyStreakReward, &f.MonthlyStreakReward, &f.YearlyStreakReward,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

const familyCols = `id, name, timezone, daily_streak_reward, weekly_streak_reward, monthly_streak_reward, yearly_streak_reward, created_at, updated_at`

func (s *FamilyStore) Create(name, timezone string) (*model.Family, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	result, err := s.db.Exec(
		`INSERT INTO families (name, timezone) VALUES (?, ?)`,
		name, timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) Update(id int64, name, timezone string) (*model.Family, error) {
	_, err := s.db.Exec(
		`UPDATE families SET name = ?, timezone = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, timezone, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family: %w", err)
	}
	return s.GetByID(id)
}

// UpdateRewardConfig sets the streak bonus amounts. Zero disables a period.
func (s *FamilyStore) UpdateRewardConfig(id int64, daily, weekly, monthly, yearly int) (*model.Family, error) {
	_, err := s.db.Exec(
		`UPDATE families
		 SET daily_streak_reward = ?, weekly_streak_reward = ?, monthly_streak_reward = ?, yearly_streak_reward = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		daily, weekly, monthly, yearly, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward config: %w", err)
	}
	return s.GetByID(id)
}

// --- Child methods ---

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Name, &c.Color, &c.AvatarEmoji,
		&c.HasPIN, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const childCols = `id, family_id, name, color, avatar_emoji, pin_hash IS NOT NULL, sort_order, created_at, updated_at`

func (s *FamilyStore) CreateChild(familyID int64, name, color, avatarEmoji string) (*model.Child, error) {
	var maxOrder int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM children WHERE family_id = ?`, familyID).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO children (family_id, name, color, avatar_emoji, sort_order) VALUES (?, ?, ?, ?, ?)`,
		familyID, name, color, avatarEmoji, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetChildByID(id)
}

func (s *FamilyStore) GetChildByID(id int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *FamilyStore) ListChildren(familyID int64) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE family_id = ? ORDER BY sort_order, name`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// ChildNameExists reports whether another child in the family already uses
// the name. excludeID lets updates skip the row being edited.
func (s *FamilyStore) ChildNameExists(familyID int64, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM children WHERE family_id = ? AND name = ? AND id != ?`,
		familyID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check child name: %w", err)
	}
	return count > 0, nil
}

func (s *FamilyStore) UpdateChild(id int64, name, color, avatarEmoji string) (*model.Child, error) {
	_, err := s.db.Exec(
		`UPDATE children SET name = ?, color = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetChildByID(id)
}

func (s *FamilyStore) DeleteChild(id int64) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

// UpdateChildSortOrder rewrites sort_order to match the given id order.
func (s *FamilyStore) UpdateChildSortOrder(familyID int64, ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE children SET sort_order = ? WHERE id = ? AND family_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(i, id, familyID); err != nil {
			return fmt.Errorf("update sort order for id %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func (s *FamilyStore) SetChildPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec(`UPDATE children SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyStore) ClearChildPIN(id int64) error {
	_, err := s.db.Exec(`UPDATE children SET pin_hash = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// ChildPINHash returns the stored hash, or "" when no PIN is set.
func (s *FamilyStore) ChildPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM children WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("child not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}
