package model

import "time"

type CompletionStatus string

const (
	CompletionPending   CompletionStatus = "pending"
	CompletionCompleted CompletionStatus = "completed"
	CompletionSkipped   CompletionStatus = "skipped"
)

type Task struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Seeds       int       `json:"seeds"`
	Schedule    string    `json:"schedule"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TaskAssignment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	ChildID   int64     `json:"child_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCompletion records the state of one task for one child on one
// timezone-local day. Date is the local-midnight instant stored in UTC;
// there is at most one row per (task, child, date).
type TaskCompletion struct {
	ID          int64            `json:"id"`
	TaskID      int64            `json:"task_id"`
	ChildID     int64            `json:"child_id"`
	Date        time.Time        `json:"date"`
	Status      CompletionStatus `json:"status"`
	SeedsEarned int              `json:"seeds_earned"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
