package model

import "time"

type RewardPeriod string

const (
	PeriodDaily   RewardPeriod = "daily"
	PeriodWeekly  RewardPeriod = "weekly"
	PeriodMonthly RewardPeriod = "monthly"
	PeriodYearly  RewardPeriod = "yearly"
)

// StreakReward is one seed bonus granted for a streak milestone. The log is
// append-only except that a daily entry may be deleted again on the day it
// was awarded, when the child un-checks a task.
type StreakReward struct {
	ID              int64        `json:"id"`
	ChildID         int64        `json:"child_id"`
	FamilyID        int64        `json:"family_id"`
	Period          RewardPeriod `json:"period"`
	StreakValue     int          `json:"streak_value"`
	SeedsEarned     int          `json:"seeds_earned"`
	StreakStartDate time.Time    `json:"streak_start_date"`
	AwardedAt       time.Time    `json:"awarded_at"`
}
