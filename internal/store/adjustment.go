package store

import (
	"database/sql"
	"fmt"

	"github.com/thornbury/seedling/internal/model"
)

type AdjustmentStore struct {
	db *sql.DB
}

func NewAdjustmentStore(db *sql.DB) *AdjustmentStore {
	return &AdjustmentStore{db: db}
}

func scanAdjustment(scanner interface{ Scan(...any) error }) (*model.SeedAdjustment, error) {
	var a model.SeedAdjustment
	var createdBy sql.NullInt64
	err := scanner.Scan(&a.ID, &a.ChildID, &a.Seeds, &a.Reason, &createdBy, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		a.CreatedBy = &createdBy.Int64
	}
	return &a, nil
}

const adjustmentCols = `id, child_id, seeds, reason, created_by, created_at`

// Create records a manual balance correction. Seeds may be negative.
func (s *AdjustmentStore) Create(childID int64, seeds int, reason string, createdBy int64) (*model.SeedAdjustment, error) {
	result, err := s.db.Exec(
		`INSERT INTO seed_adjustments (child_id, seeds, reason, created_by) VALUES (?, ?, ?, ?)`,
		childID, seeds, reason, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adjustment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AdjustmentStore) GetByID(id int64) (*model.SeedAdjustment, error) {
	row := s.db.QueryRow(`SELECT `+adjustmentCols+` FROM seed_adjustments WHERE id = ?`, id)
	a, err := scanAdjustment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get adjustment: %w", err)
	}
	return a, nil
}

func (s *AdjustmentStore) ListByChild(childID int64, limit int) ([]model.SeedAdjustment, error) {
	rows, err := s.db.Query(
		`SELECT `+adjustmentCols+` FROM seed_adjustments WHERE child_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []model.SeedAdjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		adjustments = append(adjustments, *a)
	}
	return adjustments, rows.Err()
}
