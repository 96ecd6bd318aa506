package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/thornbury/seedling/internal/model"
)

// streakLookback caps how many completed records feed the streak walk.
const streakLookback = 60

// Streak is a child's current run of consecutive completed days. StartDate
// is the local midnight the run began on, zero when Count is zero.
type Streak struct {
	Count     int       `json:"count"`
	StartDate time.Time `json:"start_date"`
}

// currentStreak computes the child's streak from the most recent completed
// records, collapsed to distinct local days.
func (e *Engine) currentStreak(childID int64, loc *time.Location) (Streak, error) {
	recs, err := e.store.ListCompletions(childID, CompletionFilter{
		Status: model.CompletionCompleted,
		Limit:  streakLookback,
		Desc:   true,
	})
	if err != nil {
		return Streak{}, fmt.Errorf("list completions: %w", err)
	}

	seen := make(map[time.Time]bool, len(recs))
	var days []time.Time
	for _, r := range recs {
		day := StartOfDay(loc, r.Date)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[j].Before(days[i]) })

	return computeStreak(days, StartOfDay(loc, e.now())), nil
}

// computeStreak walks distinct completed days, newest first, counting back
// from today. A run with no completion today is still alive through
// yesterday; it only breaks once a full day was skipped entirely.
func computeStreak(days []time.Time, today time.Time) Streak {
	var s Streak
	expected := today
walk:
	for _, day := range days {
		switch {
		case day.Equal(expected):
			s.Count++
			s.StartDate = day
			expected = expected.AddDate(0, 0, -1)
		case day.Equal(expected.AddDate(0, 0, -1)):
			// The expected day has no completion yet; the run continues
			// from the day before it.
			s.Count++
			s.StartDate = day
			expected = day.AddDate(0, 0, -1)
		case day.After(expected):
			// Future-dated records are skipped, not run-breaking.
		default:
			break walk
		}
	}
	if s.Count > 0 && s.StartDate.IsZero() {
		s.StartDate = today
	}
	return s
}
