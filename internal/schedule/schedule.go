package schedule

import (
	"fmt"
	"strings"
	"time"
)

var dayNames = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SUN",
	time.Monday:    "MON",
	time.Tuesday:   "TUE",
	time.Wednesday: "WED",
	time.Thursday:  "THU",
	time.Friday:    "FRI",
	time.Saturday:  "SAT",
}

// Set is a task's due-weekday set. The zero Set means the task is due
// every day.
type Set struct {
	days uint8 // bit n = time.Weekday n
}

// Parse parses a schedule string like "MON,WED,FRI". An empty string
// yields the every-day Set.
func Parse(s string) (Set, error) {
	var set Set
	if strings.TrimSpace(s) == "" {
		return set, nil
	}

	for _, part := range strings.Split(s, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		wd, ok := dayNames[name]
		if !ok {
			return Set{}, fmt.Errorf("unknown weekday: %q", part)
		}
		set.days |= 1 << uint(wd)
	}
	return set, nil
}

// On returns a Set containing the given weekdays.
func On(days ...time.Weekday) Set {
	var set Set
	for _, d := range days {
		set.days |= 1 << uint(d)
	}
	return set
}

// EveryDay reports whether the set has no weekday restriction.
func (s Set) EveryDay() bool {
	return s.days == 0
}

// DueOn reports whether a task with this schedule is due on the given
// weekday. The empty set is due every day.
func (s Set) DueOn(wd time.Weekday) bool {
	if s.days == 0 {
		return true
	}
	return s.days&(1<<uint(wd)) != 0
}

// Days returns the selected weekdays in Sunday-first order. Empty for the
// every-day set.
func (s Set) Days() []time.Weekday {
	var days []time.Weekday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s.days&(1<<uint(wd)) != 0 {
			days = append(days, wd)
		}
	}
	return days
}

// String serializes the set back to its storage form, e.g. "MON,WED,FRI".
func (s Set) String() string {
	if s.days == 0 {
		return ""
	}
	var parts []string
	for _, d := range s.Days() {
		parts = append(parts, dayAbbrev[d])
	}
	return strings.Join(parts, ",")
}

// Describe returns a human-readable description of the schedule.
func (s Set) Describe() string {
	if s.days == 0 {
		return "Due every day"
	}
	var names []string
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return "Due on " + strings.Join(names, ", ")
}
