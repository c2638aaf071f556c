package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestDayUsesLocation(t *testing.T) {
	now := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	if got := Day(now, time.UTC); got != "2026-01-01" {
		t.Fatalf("unexpected utc day %s", got)
	}
	east := time.FixedZone("UTC+2", 2*3600)
	if got := Day(now, east); got != "2026-01-02" {
		t.Fatalf("unexpected shifted day %s", got)
	}
}

func TestResolveDay(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"today", "2026-03-05", true},
		{"", "2026-03-05", true},
		{"2026-02-28", "2026-02-28", true},
		{"2026-02-28T23:00:00Z", "2026-02-28", true},
		{"yesterday", "", false},
	}
	for _, c := range cases {
		got, ok := ResolveDay(c.in, now, time.UTC)
		if ok != c.ok || got != c.want {
			t.Fatalf("ResolveDay(%q) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}
