package model

import "time"

type PrivilegeStatus string

const (
	PrivilegePending    PrivilegeStatus = "pending"
	PrivilegeApproved   PrivilegeStatus = "approved"
	PrivilegeDenied     PrivilegeStatus = "denied"
	PrivilegeTerminated PrivilegeStatus = "terminated"
)

type Privilege struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrivilegeRequest snapshots the privilege cost at request time. The cost
// counts against the child's balance once the request is approved, and
// keeps counting after termination.
type PrivilegeRequest struct {
	ID          int64           `json:"id"`
	PrivilegeID int64           `json:"privilege_id"`
	ChildID     int64           `json:"child_id"`
	Cost        int             `json:"cost"`
	Status      PrivilegeStatus `json:"status"`
	RequestedAt time.Time       `json:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	DecidedBy   *int64          `json:"decided_by,omitempty"`
}
