package store

import (
	"database/sql"
	"fmt"

	"github.com/thornbury/seedling/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// --- Task methods ---

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var active int
	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Seeds, &t.Schedule,
		&active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Active = active == 1
	return &t, nil
}

const taskCols = `id, family_id, title, description, seeds, schedule, active, created_at, updated_at`

func (s *TaskStore) Create(familyID int64, title, description string, seeds int, schedule string) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (family_id, title, description, seeds, schedule) VALUES (?, ?, ?, ?, ?)`,
		familyID, title, description, seeds, schedule,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByFamily(familyID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE family_id = ? ORDER BY active DESC, title`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListForChild returns the active tasks assigned to a child.
func (s *TaskStore) ListForChild(childID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.family_id, t.title, t.description, t.seeds, t.schedule, t.active, t.created_at, t.updated_at
		 FROM task_assignments ta
		 JOIN tasks t ON t.id = ta.task_id
		 WHERE ta.child_id = ? AND t.active = 1
		 ORDER BY t.title`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks for child: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, title, description string, seeds int, schedule string, active bool) (*model.Task, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, seeds = ?, schedule = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, seeds, schedule, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(`UPDATE tasks SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, a, id)
	if err != nil {
		return fmt.Errorf("set task active: %w", err)
	}
	return nil
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// HasCompletions reports whether any completion rows reference the task.
// Tasks with history get deactivated instead of deleted so past seeds
// stay accounted for.
func (s *TaskStore) HasCompletions(taskID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM task_completions WHERE task_id = ?`, taskID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count completions: %w", err)
	}
	return n > 0, nil
}

// --- Assignment methods ---

func (s *TaskStore) Assign(taskID, childID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO task_assignments (task_id, child_id) VALUES (?, ?)
		 ON CONFLICT(task_id, child_id) DO NOTHING`,
		taskID, childID,
	)
	if err != nil {
		return fmt.Errorf("assign task: %w", err)
	}
	return nil
}

func (s *TaskStore) Unassign(taskID, childID int64) error {
	_, err := s.db.Exec(`DELETE FROM task_assignments WHERE task_id = ? AND child_id = ?`, taskID, childID)
	if err != nil {
		return fmt.Errorf("unassign task: %w", err)
	}
	return nil
}

func (s *TaskStore) ListAssignments(familyID int64) ([]model.TaskAssignment, error) {
	rows, err := s.db.Query(
		`SELECT ta.id, ta.task_id, ta.child_id, ta.created_at
		 FROM task_assignments ta
		 JOIN tasks t ON t.id = ta.task_id
		 WHERE t.family_id = ?
		 ORDER BY ta.task_id, ta.child_id`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.TaskAssignment
	for rows.Next() {
		var a model.TaskAssignment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.ChildID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (s *TaskStore) IsAssigned(taskID, childID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM task_assignments WHERE task_id = ? AND child_id = ?`, taskID, childID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return n > 0, nil
}
