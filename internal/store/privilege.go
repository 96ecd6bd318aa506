package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thornbury/seedling/internal/model"
)

type PrivilegeStore struct {
	db *sql.DB
}

func NewPrivilegeStore(db *sql.DB) *PrivilegeStore {
	return &PrivilegeStore{db: db}
}

// --- Privilege methods ---

func scanPrivilege(scanner interface{ Scan(...any) error }) (*model.Privilege, error) {
	var p model.Privilege
	var active int
	err := scanner.Scan(&p.ID, &p.FamilyID, &p.Title, &p.Description, &p.Cost, &active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Active = active == 1
	return &p, nil
}

const privilegeCols = `id, family_id, title, description, cost, active, created_at`

func (s *PrivilegeStore) Create(familyID int64, title, description string, cost int) (*model.Privilege, error) {
	result, err := s.db.Exec(
		`INSERT INTO privileges (family_id, title, description, cost) VALUES (?, ?, ?, ?)`,
		familyID, title, description, cost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert privilege: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PrivilegeStore) GetByID(id int64) (*model.Privilege, error) {
	row := s.db.QueryRow(`SELECT `+privilegeCols+` FROM privileges WHERE id = ?`, id)
	p, err := scanPrivilege(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get privilege: %w", err)
	}
	return p, nil
}

func (s *PrivilegeStore) ListByFamily(familyID int64, activeOnly bool) ([]model.Privilege, error) {
	query := `SELECT ` + privilegeCols + ` FROM privileges WHERE family_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY cost, title`

	rows, err := s.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("list privileges: %w", err)
	}
	defer rows.Close()

	var privileges []model.Privilege
	for rows.Next() {
		p, err := scanPrivilege(rows)
		if err != nil {
			return nil, fmt.Errorf("scan privilege: %w", err)
		}
		privileges = append(privileges, *p)
	}
	return privileges, rows.Err()
}

func (s *PrivilegeStore) Update(id int64, title, description string, cost int, active bool) (*model.Privilege, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE privileges SET title = ?, description = ?, cost = ?, active = ? WHERE id = ?`,
		title, description, cost, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update privilege: %w", err)
	}
	return s.GetByID(id)
}

func (s *PrivilegeStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM privileges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete privilege: %w", err)
	}
	return nil
}

// --- Request methods ---

func scanPrivilegeRequest(scanner interface{ Scan(...any) error }) (*model.PrivilegeRequest, error) {
	var r model.PrivilegeRequest
	var decidedAt sql.NullTime
	var decidedBy sql.NullInt64
	err := scanner.Scan(
		&r.ID, &r.PrivilegeID, &r.ChildID, &r.Cost, &r.Status,
		&r.RequestedAt, &decidedAt, &decidedBy,
	)
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		r.DecidedAt = &decidedAt.Time
	}
	if decidedBy.Valid {
		r.DecidedBy = &decidedBy.Int64
	}
	return &r, nil
}

const privilegeRequestCols = `id, privilege_id, child_id, cost, status, requested_at, decided_at, decided_by`

// CreateRequest snapshots the privilege's current cost so later price edits
// don't change what an approved request costs.
func (s *PrivilegeStore) CreateRequest(privilegeID, childID int64, cost int) (*model.PrivilegeRequest, error) {
	result, err := s.db.Exec(
		`INSERT INTO privilege_requests (privilege_id, child_id, cost) VALUES (?, ?, ?)`,
		privilegeID, childID, cost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert privilege request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRequestByID(id)
}

func (s *PrivilegeStore) GetRequestByID(id int64) (*model.PrivilegeRequest, error) {
	row := s.db.QueryRow(`SELECT `+privilegeRequestCols+` FROM privilege_requests WHERE id = ?`, id)
	r, err := scanPrivilegeRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get privilege request: %w", err)
	}
	return r, nil
}

func (s *PrivilegeStore) ListRequestsByFamily(familyID int64, status model.PrivilegeStatus) ([]model.PrivilegeRequest, error) {
	query := `SELECT pr.id, pr.privilege_id, pr.child_id, pr.cost, pr.status, pr.requested_at, pr.decided_at, pr.decided_by
	 FROM privilege_requests pr
	 JOIN privileges p ON p.id = pr.privilege_id
	 WHERE p.family_id = ?`
	args := []any{familyID}
	if status != "" {
		query += ` AND pr.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY pr.requested_at DESC, pr.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list privilege requests: %w", err)
	}
	defer rows.Close()
	return collectPrivilegeRequests(rows)
}

func (s *PrivilegeStore) ListRequestsByChild(childID int64) ([]model.PrivilegeRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+privilegeRequestCols+` FROM privilege_requests WHERE child_id = ? ORDER BY requested_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list privilege requests: %w", err)
	}
	defer rows.Close()
	return collectPrivilegeRequests(rows)
}

func collectPrivilegeRequests(rows *sql.Rows) ([]model.PrivilegeRequest, error) {
	var requests []model.PrivilegeRequest
	for rows.Next() {
		r, err := scanPrivilegeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan privilege request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// Decide moves a request to its new status and stamps who decided when.
// Approved and terminated requests count against the child's balance.
func (s *PrivilegeStore) Decide(id int64, status model.PrivilegeStatus, decidedBy int64) (*model.PrivilegeRequest, error) {
	_, err := s.db.Exec(
		`UPDATE privilege_requests SET status = ?, decided_at = ?, decided_by = ? WHERE id = ?`,
		status, time.Now().UTC(), decidedBy, id,
	)
	if err != nil {
		return nil, fmt.Errorf("decide privilege request: %w", err)
	}
	return s.GetRequestByID(id)
}
