package model

import "time"

type Family struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Timezone            string    `json:"timezone"`
	DailyStreakReward   int       `json:"daily_streak_reward"`
	WeeklyStreakReward  int       `json:"weekly_streak_reward"`
	MonthlyStreakReward int       `json:"monthly_streak_reward"`
	YearlyStreakReward  int       `json:"yearly_streak_reward"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type Child struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	HasPIN      bool      `json:"has_pin"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
