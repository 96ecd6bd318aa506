package progress

import (
	"errors"
	"testing"
	"time"
)

func TestResolveLocationEmpty(t *testing.T) {
	loc, err := ResolveLocation("")
	if err != nil {
		t.Fatalf("ResolveLocation error: %v", err)
	}
	if loc != time.UTC {
		t.Errorf("loc = %v, want UTC", loc)
	}
}

func TestResolveLocationValid(t *testing.T) {
	loc, err := ResolveLocation("America/New_York")
	if err != nil {
		t.Fatalf("ResolveLocation error: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("loc = %v, want America/New_York", loc)
	}
}

func TestResolveLocationInvalid(t *testing.T) {
	loc, err := ResolveLocation("Mars/Olympus_Mons")
	if !errors.Is(err, ErrInvalidTimezone) {
		t.Errorf("err = %v, want ErrInvalidTimezone", err)
	}
	if loc != time.UTC {
		t.Errorf("loc = %v, want UTC fallback", loc)
	}
}

func TestStartOfDayUTC(t *testing.T) {
	at := time.Date(2026, 3, 10, 15, 42, 7, 0, time.UTC)
	got := StartOfDay(time.UTC, at)
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
}

func TestStartOfDayCrossesDateLine(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// 04:30 UTC on Jan 15 is still Jan 14 in New York (UTC-5).
	at := time.Date(2026, 1, 15, 4, 30, 0, 0, time.UTC)
	got := StartOfDay(ny, at)
	want := time.Date(2026, 1, 14, 5, 0, 0, 0, time.UTC) // Jan 14 00:00 EST
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	start, end := DayBounds(time.UTC, at)
	if !start.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

func TestDayBoundsSpringForward(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// March 8 2026 loses an hour in New York; the day is 23 hours long.
	at := time.Date(2026, 3, 8, 12, 0, 0, 0, ny)
	start, end := DayBounds(ny, at)
	if got := end.Sub(start); got != 23*time.Hour {
		t.Errorf("window = %v, want 23h", got)
	}
}

func TestDayBoundsFallBack(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// November 1 2026 repeats an hour in New York; the day is 25 hours long.
	at := time.Date(2026, 11, 1, 12, 0, 0, 0, ny)
	start, end := DayBounds(ny, at)
	if got := end.Sub(start); got != 25*time.Hour {
		t.Errorf("window = %v, want 25h", got)
	}
}

func TestWeekdayOn(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	// Saturday 02:00 UTC is still Friday evening in Los Angeles.
	at := time.Date(2026, 3, 7, 2, 0, 0, 0, time.UTC)
	if got := WeekdayOn(la, at); got != time.Friday {
		t.Errorf("weekday = %v, want Friday", got)
	}
	if got := WeekdayOn(time.UTC, at); got != time.Saturday {
		t.Errorf("weekday = %v, want Saturday", got)
	}
}
