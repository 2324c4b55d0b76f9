package util

import (
	"strconv"
	"time"
)

// DayLayout is the join key and wire format for calendar dates.
const DayLayout = "2006-01-02"

// ParseTime tries YYYY-MM-DD, RFC3339 and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// DateOf drops the clock part of t, keeping its civil date in t's location,
// and returns midnight UTC of that date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats the civil date of t.
func DayKey(t time.Time) string { return t.Format(DayLayout) }

// ParseDay parses a YYYY-MM-DD date as midnight UTC.
func ParseDay(s string) (time.Time, error) { return time.Parse(DayLayout, s) }

// EachDay returns every calendar date from start to end inclusive.
// It returns nil when end is before start.
func EachDay(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil
	}
	out := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// YearsBetween lists the calendar years touched by [start, end].
func YearsBetween(start, end time.Time) []int {
	var out []int
	for y := start.Year(); y <= end.Year(); y++ {
		out = append(out, y)
	}
	return out
}
