package progress

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/thornbury/seedling/internal/model"
)

// Engine derives streaks, balances and streak bonuses from the completion
// ledger. It holds no state of its own; everything is recomputed from the
// store on each call.
type Engine struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Engine {
	return NewWithClock(store, time.Now)
}

// NewWithClock builds an engine with an injected clock, so tests can pin
// "today".
func NewWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// Snapshot is the progress summary exposed to dashboards.
type Snapshot struct {
	Date      time.Time `json:"date"`
	Streak    Streak    `json:"streak"`
	Balance   int       `json:"balance"`
	DueToday  int       `json:"due_today"`
	DoneToday int       `json:"done_today"`
	AllDone   bool      `json:"all_done"`
}

// CompleteTask records a completed status for the task on today's date and
// reconciles the child's streak state. seeds is the task's configured seed
// value.
func (e *Engine) CompleteTask(taskID, childID, familyID int64, seeds int, tzName string) (*model.TaskCompletion, *CheckInResult, error) {
	loc := e.location(tzName)
	today := StartOfDay(loc, e.now())

	comp, err := e.store.UpsertCompletion(taskID, childID, today, model.CompletionCompleted, seeds)
	if err != nil {
		return nil, nil, fmt.Errorf("record completion: %w", err)
	}

	res, err := e.CheckIn(childID, familyID, tzName)
	if err != nil {
		return comp, nil, err
	}
	return comp, res, nil
}

// UncompleteTask sets today's record for the task back to pending with no
// seeds and revokes today's daily bonus if the due set is no longer fully
// complete.
func (e *Engine) UncompleteTask(taskID, childID, familyID int64, tzName string) (*model.TaskCompletion, error) {
	loc := e.location(tzName)
	today := StartOfDay(loc, e.now())

	comp, err := e.store.UpsertCompletion(taskID, childID, today, model.CompletionPending, 0)
	if err != nil {
		return nil, fmt.Errorf("reset completion: %w", err)
	}

	if err := e.RevokeDaily(childID, familyID, tzName); err != nil {
		return comp, err
	}
	return comp, nil
}

// CheckIn backfills the child's history and reconciles streak bonuses. It
// is the entry point after every completion change, and cheap enough to run
// on reads too.
func (e *Engine) CheckIn(childID, familyID int64, tzName string) (*CheckInResult, error) {
	loc := e.location(tzName)
	if err := e.backfill(childID, loc); err != nil {
		return nil, err
	}
	return e.reconcile(childID, familyID, loc)
}

// Snapshot backfills, then returns the child's current streak, balance and
// today's due/done counts.
func (e *Engine) Snapshot(childID, familyID int64, tzName string) (*Snapshot, error) {
	loc := e.location(tzName)
	if err := e.backfill(childID, loc); err != nil {
		return nil, err
	}

	streak, err := e.currentStreak(childID, loc)
	if err != nil {
		return nil, err
	}
	balance, err := e.Balance(childID)
	if err != nil {
		return nil, err
	}
	due, done, err := e.dueAndDoneToday(childID, loc)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Date:      StartOfDay(loc, e.now()),
		Streak:    streak,
		Balance:   balance,
		DueToday:  len(due),
		DoneToday: done,
		AllDone:   len(due) > 0 && done == len(due),
	}, nil
}

// location resolves a family timezone, falling back to UTC with a warning
// rather than failing the request.
func (e *Engine) location(tzName string) *time.Location {
	loc, err := ResolveLocation(tzName)
	if err != nil {
		slog.Warn("invalid family timezone, falling back to UTC", "timezone", tzName)
	}
	return loc
}
