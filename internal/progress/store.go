package progress

import (
	"time"

	"github.com/thornbury/seedling/internal/model"
)

// CompletionFilter narrows a ListCompletions query. Zero-valued fields are
// not applied.
type CompletionFilter struct {
	TaskID int64
	Status model.CompletionStatus
	From   time.Time // inclusive
	To     time.Time // exclusive
	Limit  int
	Desc   bool // newest first
}

// DueTask is one active task assigned to a child, with the weekday schedule
// that decides which days it is due.
type DueTask struct {
	TaskID     int64
	Schedule   string
	Seeds      int
	AssignedAt time.Time
}

// RewardConfig is a family's streak bonus table. A zero amount disables
// that period.
type RewardConfig struct {
	Daily   int
	Weekly  int
	Monthly int
	Yearly  int
}

// Store is the ledger boundary the engine reads and writes through.
type Store interface {
	// ListCompletions returns a child's completion records ordered by date,
	// restricted by the filter.
	ListCompletions(childID int64, f CompletionFilter) ([]model.TaskCompletion, error)

	// UpsertCompletion creates or updates the record keyed by
	// (taskID, childID, date), setting status and seeds.
	UpsertCompletion(taskID, childID int64, date time.Time, status model.CompletionStatus, seeds int) (*model.TaskCompletion, error)

	// InsertCompletionIfAbsent creates the record keyed by
	// (taskID, childID, date) only if none exists; an existing record of any
	// status is left untouched.
	InsertCompletionIfAbsent(taskID, childID int64, date time.Time, status model.CompletionStatus, seeds int) error

	// DueTasks returns the child's active task assignments.
	DueTasks(childID int64) ([]DueTask, error)

	// SumSeedSources returns the six ledger sums the balance is folded from.
	SumSeedSources(childID int64) (SeedSources, error)

	// RewardConfig returns the family's streak bonus amounts.
	RewardConfig(familyID int64) (RewardConfig, error)

	// LatestStreakReward returns the child's most recent bonus entry for the
	// period, or nil if there is none.
	LatestStreakReward(childID int64, period model.RewardPeriod) (*model.StreakReward, error)

	// InsertStreakReward appends a bonus entry. It reports false, without
	// error, when an entry with the same (child, period, streak start)
	// already exists.
	InsertStreakReward(r *model.StreakReward) (bool, error)

	// DeleteStreakRewards removes the child's bonus entries for the period
	// whose awarded_at falls within [from, to).
	DeleteStreakRewards(childID, familyID int64, period model.RewardPeriod, from, to time.Time) error
}
