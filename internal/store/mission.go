package store

import (
	"database/sql"
	"fmt"

	"github.com/thornbury/seedling/internal/model"
)

type MissionStore struct {
	db *sql.DB
}

func NewMissionStore(db *sql.DB) *MissionStore {
	return &MissionStore{db: db}
}

// --- Mission methods ---

func scanMission(scanner interface{ Scan(...any) error }) (*model.Mission, error) {
	var m model.Mission
	var active int
	err := scanner.Scan(&m.ID, &m.FamilyID, &m.Title, &m.Description, &m.Seeds, &active, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Active = active == 1
	return &m, nil
}

const missionCols = `id, family_id, title, description, seeds, active, created_at`

func (s *MissionStore) Create(familyID int64, title, description string, seeds int) (*model.Mission, error) {
	result, err := s.db.Exec(
		`INSERT INTO missions (family_id, title, description, seeds) VALUES (?, ?, ?, ?)`,
		familyID, title, description, seeds,
	)
	if err != nil {
		return nil, fmt.Errorf("insert mission: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MissionStore) GetByID(id int64) (*model.Mission, error) {
	row := s.db.QueryRow(`SELECT `+missionCols+` FROM missions WHERE id = ?`, id)
	m, err := scanMission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mission: %w", err)
	}
	return m, nil
}

func (s *MissionStore) ListByFamily(familyID int64, activeOnly bool) ([]model.Mission, error) {
	query := `SELECT ` + missionCols + ` FROM missions WHERE family_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY seeds DESC, title`

	rows, err := s.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	defer rows.Close()

	var missions []model.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		missions = append(missions, *m)
	}
	return missions, rows.Err()
}

func (s *MissionStore) Update(id int64, title, description string, seeds int, active bool) (*model.Mission, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE missions SET title = ?, description = ?, seeds = ?, active = ? WHERE id = ?`,
		title, description, seeds, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update mission: %w", err)
	}
	return s.GetByID(id)
}

func (s *MissionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM missions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete mission: %w", err)
	}
	return nil
}

// --- Award methods ---

// Award grants a mission's seeds to a child. The seed amount is snapshotted
// so later mission edits leave past awards untouched.
func (s *MissionStore) Award(missionID, childID int64, seedsEarned int, awardedBy int64) (*model.MissionAward, error) {
	result, err := s.db.Exec(
		`INSERT INTO mission_awards (mission_id, child_id, seeds_earned, awarded_by) VALUES (?, ?, ?, ?)`,
		missionID, childID, seedsEarned, awardedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert mission award: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAwardByID(id)
}

func (s *MissionStore) GetAwardByID(id int64) (*model.MissionAward, error) {
	row := s.db.QueryRow(
		`SELECT id, mission_id, child_id, seeds_earned, awarded_by, awarded_at FROM mission_awards WHERE id = ?`,
		id,
	)
	a, err := scanMissionAward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mission award: %w", err)
	}
	return a, nil
}

func scanMissionAward(scanner interface{ Scan(...any) error }) (*model.MissionAward, error) {
	var a model.MissionAward
	var awardedBy sql.NullInt64
	err := scanner.Scan(&a.ID, &a.MissionID, &a.ChildID, &a.SeedsEarned, &awardedBy, &a.AwardedAt)
	if err != nil {
		return nil, err
	}
	if awardedBy.Valid {
		a.AwardedBy = &awardedBy.Int64
	}
	return &a, nil
}

func (s *MissionStore) ListAwardsByChild(childID int64, limit int) ([]model.MissionAward, error) {
	rows, err := s.db.Query(
		`SELECT id, mission_id, child_id, seeds_earned, awarded_by, awarded_at
		 FROM mission_awards WHERE child_id = ?
		 ORDER BY awarded_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list mission awards: %w", err)
	}
	defer rows.Close()

	var awards []model.MissionAward
	for rows.Next() {
		a, err := scanMissionAward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mission award: %w", err)
		}
		awards = append(awards, *a)
	}
	return awards, rows.Err()
}
