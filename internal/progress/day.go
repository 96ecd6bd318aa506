package progress

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimezone is returned by ResolveLocation when the tz database
// does not know the name. Callers fall back to UTC rather than failing the
// request.
var ErrInvalidTimezone = errors.New("invalid timezone")

// ResolveLocation maps an IANA timezone name to its location. An empty name
// means UTC. An unknown name also returns UTC, alongside ErrInvalidTimezone,
// so callers can warn and keep going.
func ResolveLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// StartOfDay returns local midnight in loc for the calendar day containing t.
func StartOfDay(loc *time.Location, t time.Time) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the [start, end) window of the local day containing t.
// The end is the next local midnight, so the window is 23 or 25 hours on
// DST transition days.
func DayBounds(loc *time.Location, t time.Time) (time.Time, time.Time) {
	start := StartOfDay(loc, t)
	return start, start.AddDate(0, 0, 1)
}

// WeekdayOn returns t's weekday as observed in loc.
func WeekdayOn(loc *time.Location, t time.Time) time.Weekday {
	return t.In(loc).Weekday()
}
