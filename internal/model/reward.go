package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SeedCost    int       `json:"seed_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardRedemption struct {
	ID         int64     `json:"id"`
	RewardID   int64     `json:"reward_id"`
	ChildID    int64     `json:"child_id"`
	SeedsSpent int       `json:"seeds_spent"`
	RedeemedAt time.Time `json:"redeemed_at"`
}
