package progress

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/schedule"
)

// Streak-length thresholds for the period bonuses.
const (
	weeklyThreshold  = 7
	monthlyThreshold = 31
	yearlyThreshold  = 365
)

// CheckInResult is what a reconciliation pass found and did.
type CheckInResult struct {
	Streak    Streak               `json:"streak"`
	DueToday  int                  `json:"due_today"`
	DoneToday int                  `json:"done_today"`
	AllDone   bool                 `json:"all_done"`
	Issued    []model.StreakReward `json:"issued,omitempty"`
}

// reconcile recomputes the child's streak and issues any streak bonuses now
// owed: the daily all-done bonus, then the weekly, monthly and yearly
// threshold bonuses, each period independently and at most once per streak
// run.
func (e *Engine) reconcile(childID, familyID int64, loc *time.Location) (*CheckInResult, error) {
	streak, err := e.currentStreak(childID, loc)
	if err != nil {
		return nil, err
	}

	cfg, err := e.store.RewardConfig(familyID)
	if err != nil {
		return nil, fmt.Errorf("load reward config: %w", err)
	}

	due, done, err := e.dueAndDoneToday(childID, loc)
	if err != nil {
		return nil, err
	}

	res := &CheckInResult{
		Streak:    streak,
		DueToday:  len(due),
		DoneToday: done,
		AllDone:   len(due) > 0 && done == len(due),
	}

	if res.AllDone && cfg.Daily > 0 {
		issued, err := e.issueDaily(childID, familyID, loc, cfg.Daily, done)
		if err != nil {
			return nil, err
		}
		if issued != nil {
			res.Issued = append(res.Issued, *issued)
		}
	}

	if streak.Count == 0 || streak.StartDate.IsZero() {
		return res, nil
	}

	periods := []struct {
		period    model.RewardPeriod
		threshold int
		seeds     int
	}{
		{model.PeriodWeekly, weeklyThreshold, cfg.Weekly},
		{model.PeriodMonthly, monthlyThreshold, cfg.Monthly},
		{model.PeriodYearly, yearlyThreshold, cfg.Yearly},
	}
	for _, p := range periods {
		if p.seeds <= 0 || streak.Count < p.threshold {
			continue
		}
		latest, err := e.store.LatestStreakReward(childID, p.period)
		if err != nil {
			return nil, fmt.Errorf("find latest %s reward: %w", p.period, err)
		}
		if latest != nil && !latest.AwardedAt.Before(streak.StartDate) {
			// Already rewarded during this streak run.
			continue
		}
		r := &model.StreakReward{
			ChildID:         childID,
			FamilyID:        familyID,
			Period:          p.period,
			StreakValue:     streak.Count,
			SeedsEarned:     p.seeds,
			StreakStartDate: streak.StartDate,
			AwardedAt:       e.now(),
		}
		inserted, err := e.store.InsertStreakReward(r)
		if err != nil {
			return nil, fmt.Errorf("insert %s reward: %w", p.period, err)
		}
		if !inserted {
			// A concurrent reconcile got there first.
			slog.Debug("streak reward already issued", "child_id", childID, "period", p.period)
			continue
		}
		res.Issued = append(res.Issued, *r)
	}

	return res, nil
}

// issueDaily appends the daily all-done bonus unless one was already
// awarded today. streakValue records how many due tasks were completed.
func (e *Engine) issueDaily(childID, familyID int64, loc *time.Location, seeds, doneCount int) (*model.StreakReward, error) {
	today := StartOfDay(loc, e.now())

	latest, err := e.store.LatestStreakReward(childID, model.PeriodDaily)
	if err != nil {
		return nil, fmt.Errorf("find latest daily reward: %w", err)
	}
	if latest != nil && StartOfDay(loc, latest.AwardedAt).Equal(today) {
		return nil, nil
	}

	r := &model.StreakReward{
		ChildID:         childID,
		FamilyID:        familyID,
		Period:          model.PeriodDaily,
		StreakValue:     doneCount,
		SeedsEarned:     seeds,
		StreakStartDate: today,
		AwardedAt:       e.now(),
	}
	inserted, err := e.store.InsertStreakReward(r)
	if err != nil {
		return nil, fmt.Errorf("insert daily reward: %w", err)
	}
	if !inserted {
		return nil, nil
	}
	return r, nil
}

// RevokeDaily removes today's daily bonus when the child's due tasks are no
// longer all complete. Call it when a completion is set back to pending.
// Weekly and longer bonuses are never revoked.
func (e *Engine) RevokeDaily(childID, familyID int64, tzName string) error {
	loc := e.location(tzName)

	due, done, err := e.dueAndDoneToday(childID, loc)
	if err != nil {
		return err
	}
	if len(due) == 0 || done == len(due) {
		return nil
	}

	start, end := DayBounds(loc, e.now())
	if err := e.store.DeleteStreakRewards(childID, familyID, model.PeriodDaily, start, end); err != nil {
		return fmt.Errorf("revoke daily reward: %w", err)
	}
	return nil
}

// dueAndDoneToday returns the tasks due for the child today and how many of
// them have a completed record in today's window.
func (e *Engine) dueAndDoneToday(childID int64, loc *time.Location) ([]DueTask, int, error) {
	tasks, err := e.store.DueTasks(childID)
	if err != nil {
		return nil, 0, fmt.Errorf("list due tasks: %w", err)
	}

	weekday := WeekdayOn(loc, e.now())
	var due []DueTask
	for _, t := range tasks {
		if e.dueSchedule(t).DueOn(weekday) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil, 0, nil
	}

	start, end := DayBounds(loc, e.now())
	recs, err := e.store.ListCompletions(childID, CompletionFilter{
		Status: model.CompletionCompleted,
		From:   start,
		To:     end,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list today's completions: %w", err)
	}

	dueIDs := make(map[int64]bool, len(due))
	for _, t := range due {
		dueIDs[t.TaskID] = true
	}
	completed := make(map[int64]bool)
	for _, r := range recs {
		if dueIDs[r.TaskID] {
			completed[r.TaskID] = true
		}
	}
	return due, len(completed), nil
}

// dueSchedule parses a task's schedule, treating an invalid one as due
// every day rather than failing the whole reconciliation.
func (e *Engine) dueSchedule(t DueTask) schedule.Set {
	set, err := schedule.Parse(t.Schedule)
	if err != nil {
		slog.Warn("invalid task schedule, treating as due every day", "task_id", t.TaskID, "schedule", t.Schedule, "error", err)
		return schedule.Set{}
	}
	return set
}
