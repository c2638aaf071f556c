package ratelimit

import (
	"strconv"
	"testing"
	"time"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewWithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !l.Allow("user:1", 3, 0.1) {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if l.Allow("user:1", 3, 0.1) {
		t.Fatalf("expected burst to be exhausted")
	}
	if !l.Allow("user:2", 3, 0.1) {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(10 * time.Second)
	if !l.Allow("user:1", 3, 0.1) {
		t.Fatalf("expected one token after refill")
	}
	if l.Allow("user:1", 3, 0.1) {
		t.Fatalf("only one token should have refilled")
	}
}

func TestLimiterPurgesIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewWithClock(func() time.Time { return now })

	for i := 0; i < 1024; i++ {
		l.Allow("user:"+strconv.Itoa(i), 1, 1)
	}
	now = now.Add(2 * time.Hour)
	l.Allow("user:fresh", 1, 1)
	if n := l.Len(); n != 1 {
		t.Fatalf("expected idle keys purged, %d left", n)
	}
}
