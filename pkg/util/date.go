package util

import (
	"strconv"
	"strings"
	"time"
)

// DayLayout is the calendar-day key format.
const DayLayout = time.DateOnly

// Day returns the calendar day of t in loc as YYYY-MM-DD.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ParseTime accepts RFC3339 (with or without fractional seconds) or unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ResolveDay turns "today", "" , a YYYY-MM-DD day or any ParseTime input into a day key.
func ResolveDay(s string, now time.Time, loc *time.Location) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return Day(now, loc), true
	}
	if d, err := time.Parse(DayLayout, s); err == nil {
		return d.Format(DayLayout), true
	}
	if t, ok := ParseTime(s); ok {
		return Day(t, loc), true
	}
	return "", false
}
