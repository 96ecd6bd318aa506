package model

import "time"

// SeedAdjustment is a manual correction by a parent. Seeds may be negative.
type SeedAdjustment struct {
	ID        int64     `json:"id"`
	ChildID   int64     `json:"child_id"`
	Seeds     int       `json:"seeds"`
	Reason    string    `json:"reason"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
