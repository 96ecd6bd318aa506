package store

import (
	"testing"

	"github.com/thornbury/seedling/internal/database"
)

func setupTaskTestDB(t *testing.T) (*TaskStore, *FamilyStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskStore(db), NewFamilyStore(db)
}

func TestTaskCRUD(t *testing.T) {
	ts, fs := setupTaskTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")

	// Create
	task, err := ts.Create(fam.ID, "Feed the dog", "Morning and evening", 2, "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Title != "Feed the dog" {
		t.Errorf("title = %q, want %q", task.Title, "Feed the dog")
	}
	if task.Seeds != 2 {
		t.Errorf("seeds = %d, want 2", task.Seeds)
	}
	if !task.Active {
		t.Error("new task should be active")
	}
	if task.Schedule != "" {
		t.Errorf("schedule = %q, want empty (due every day)", task.Schedule)
	}

	// Update
	updated, err := ts.Update(task.ID, "Feed the cat", "", 3, "MON,WED,FRI", true)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Title != "Feed the cat" {
		t.Errorf("title = %q, want %q", updated.Title, "Feed the cat")
	}
	if updated.Schedule != "MON,WED,FRI" {
		t.Errorf("schedule = %q, want %q", updated.Schedule, "MON,WED,FRI")
	}

	// Deactivate
	if err := ts.SetActive(task.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	got, _ := ts.GetByID(task.ID)
	if got.Active {
		t.Error("expected inactive after SetActive(false)")
	}

	// Delete
	if err := ts.Delete(task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err = ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestTaskNotFound(t *testing.T) {
	ts, _ := setupTaskTestDB(t)

	task, err := ts.GetByID(999)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task != nil {
		t.Error("expected nil for non-existent task")
	}
}

func TestTaskListOrdering(t *testing.T) {
	ts, fs := setupTaskTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	ts.Create(fam.ID, "Zebra chore", "", 1, "")
	ts.Create(fam.ID, "Alpha chore", "", 1, "")
	inactive, _ := ts.Create(fam.ID, "Beta chore", "", 1, "")
	ts.SetActive(inactive.ID, false)

	tasks, err := ts.ListByFamily(fam.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}

	// Active first (alpha, zebra), then inactive (beta)
	if tasks[0].Title != "Alpha chore" {
		t.Errorf("tasks[0].Title = %q, want %q", tasks[0].Title, "Alpha chore")
	}
	if tasks[1].Title != "Zebra chore" {
		t.Errorf("tasks[1].Title = %q, want %q", tasks[1].Title, "Zebra chore")
	}
	if tasks[2].Title != "Beta chore" {
		t.Errorf("tasks[2].Title = %q, want %q", tasks[2].Title, "Beta chore")
	}
}

func TestTaskAssignments(t *testing.T) {
	ts, fs := setupTaskTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	child, _ := fs.CreateChild(fam.ID, "Alice", "", "")
	task, _ := ts.Create(fam.ID, "Feed the dog", "", 2, "")

	if err := ts.Assign(task.ID, child.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	assigned, err := ts.IsAssigned(task.ID, child.ID)
	if err != nil {
		t.Fatalf("is assigned: %v", err)
	}
	if !assigned {
		t.Error("expected assigned")
	}

	// Double-assign is a no-op, not an error.
	if err := ts.Assign(task.ID, child.ID); err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	assignments, _ := ts.ListAssignments(fam.ID)
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}

	if err := ts.Unassign(task.ID, child.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	assigned, _ = ts.IsAssigned(task.ID, child.ID)
	if assigned {
		t.Error("expected unassigned")
	}
}

func TestTaskListForChild(t *testing.T) {
	ts, fs := setupTaskTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	child, _ := fs.CreateChild(fam.ID, "Alice", "", "")

	assigned, _ := ts.Create(fam.ID, "Feed the dog", "", 2, "")
	inactive, _ := ts.Create(fam.ID, "Old chore", "", 1, "")
	ts.Create(fam.ID, "Unassigned chore", "", 1, "")

	ts.Assign(assigned.ID, child.ID)
	ts.Assign(inactive.ID, child.ID)
	ts.SetActive(inactive.ID, false)

	tasks, err := ts.ListForChild(child.ID)
	if err != nil {
		t.Fatalf("list for child: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "Feed the dog" {
		t.Errorf("title = %q, want %q", tasks[0].Title, "Feed the dog")
	}
}

func TestTaskHasCompletions(t *testing.T) {
	ts, fs := setupTaskTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	child, _ := fs.CreateChild(fam.ID, "Alice", "", "")
	task, _ := ts.Create(fam.ID, "Feed the dog", "", 2, "")

	has, err := ts.HasCompletions(task.ID)
	if err != nil {
		t.Fatalf("has completions: %v", err)
	}
	if has {
		t.Error("expected no completions for new task")
	}

	_, err = ts.db.Exec(
		`INSERT INTO task_completions (task_id, child_id, date, status, seeds_earned) VALUES (?, ?, '2026-03-10 00:00:00', 'completed', 2)`,
		task.ID, child.ID,
	)
	if err != nil {
		t.Fatalf("insert completion: %v", err)
	}

	has, _ = ts.HasCompletions(task.ID)
	if !has {
		t.Error("expected completions after insert")
	}
}
