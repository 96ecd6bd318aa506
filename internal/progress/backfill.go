package progress

import (
	"fmt"
	"time"

	"github.com/thornbury/seedling/internal/model"
)

// backfill inserts skipped records for every day a task was due but never
// recorded, so the streak walk never sees a gap that only means the child
// didn't open the app. Idempotent and safe to run on every read.
func (e *Engine) backfill(childID int64, loc *time.Location) error {
	tasks, err := e.store.DueTasks(childID)
	if err != nil {
		return fmt.Errorf("list due tasks: %w", err)
	}

	today := StartOfDay(loc, e.now())
	for _, t := range tasks {
		if err := e.backfillTask(childID, t, loc, today); err != nil {
			return err
		}
	}
	return nil
}

// backfillTask walks one assignment forward from the day after its last
// record (or the assignment's creation day) up to yesterday, inserting a
// skipped record for each due day with no record. Today is left alone; it
// is still in play.
func (e *Engine) backfillTask(childID int64, t DueTask, loc *time.Location, today time.Time) error {
	recs, err := e.store.ListCompletions(childID, CompletionFilter{
		TaskID: t.TaskID,
		Limit:  1,
		Desc:   true,
	})
	if err != nil {
		return fmt.Errorf("find last completion: %w", err)
	}

	var cursor time.Time
	if len(recs) > 0 {
		cursor = StartOfDay(loc, recs[0].Date).AddDate(0, 0, 1)
	} else {
		cursor = StartOfDay(loc, t.AssignedAt)
	}

	set := e.dueSchedule(t)
	for ; cursor.Before(today); cursor = cursor.AddDate(0, 0, 1) {
		if !set.DueOn(cursor.Weekday()) {
			continue
		}
		if err := e.store.InsertCompletionIfAbsent(t.TaskID, childID, cursor, model.CompletionSkipped, 0); err != nil {
			return fmt.Errorf("backfill completion: %w", err)
		}
	}
	return nil
}
