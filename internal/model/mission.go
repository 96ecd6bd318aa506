package model

import "time"

type Mission struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Seeds       int       `json:"seeds"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type MissionAward struct {
	ID          int64     `json:"id"`
	MissionID   int64     `json:"mission_id"`
	ChildID     int64     `json:"child_id"`
	SeedsEarned int       `json:"seeds_earned"`
	AwardedBy   *int64    `json:"awarded_by,omitempty"`
	AwardedAt   time.Time `json:"awarded_at"`
}
