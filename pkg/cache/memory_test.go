package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type record struct {
	ID   string `json:"id"`
	Hits int    `json:"hits"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", record{ID: "a", Hits: 2}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got record
	if err := mc.Get(ctx, "k", &got); err != nil || got.ID != "a" || got.Hits != 2 {
		t.Fatalf("unexpected get %+v err=%v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if err := mc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCacheSetNXSingleWinner(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := mc.SetNX(ctx, "snap", record{Hits: i}, time.Hour)
			if err != nil {
				t.Errorf("setnx: %v", err)
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", 0)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	now = now.Add(time.Second)
	var s string
	_ = mc.Get(ctx, "a", &s)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to remain")
	}
}

func TestLayeredCacheServesFromMemoryAfterRemoteRead(t *testing.T) {
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	if ok, err := lc.SetNX(ctx, "prefs", record{ID: "p"}, 0); err != nil || !ok {
		t.Fatalf("setnx: %v %v", ok, err)
	}
	_ = remote.Delete(ctx, "prefs")

	var got record
	if err := lc.Get(ctx, "prefs", &got); err != nil || got.ID != "p" {
		t.Fatalf("expected L1 hit, got %+v err=%v", got, err)
	}
}

func TestMemoryCacheOverwriteKeepsSize(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = mc.Set(ctx, "same", record{Hits: i}, time.Minute)
	}
	_ = mc.Set(ctx, "other", "x", time.Minute)

	var got record
	if err := mc.Get(ctx, "same", &got); err != nil || got.Hits != 4 {
		t.Fatalf("expected latest value, got %+v err=%v", got, err)
	}
	if n := mc.Len(); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}

func TestMemoryCacheLockReleasedOnUnlock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "lock:votes", time.Minute); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock:votes", time.Minute); ok {
		t.Fatalf("second lock should fail while held")
	}
	_ = mc.Unlock(ctx, "lock:votes")
	if ok, _ := mc.TryLock(ctx, "lock:votes", time.Minute); !ok {
		t.Fatalf("lock should be free after unlock")
	}
}

func TestDurableMemoryCacheNeverEvicts(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryDurable(), WithMemoryMaxSize(2), WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		if err := mc.Set(ctx, k, record{ID: k}, 0); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := mc.Set(ctx, "short", record{ID: "s"}, time.Hour); err != nil {
		t.Fatalf("set short: %v", err)
	}
	if mc.Len() != 5 {
		t.Fatalf("durable cache evicted entries, len=%d", mc.Len())
	}

	now = now.AddDate(1, 0, 0)
	var got record
	if err := mc.Get(ctx, "a", &got); err != nil || got.ID != "a" {
		t.Fatalf("entry without expiration should stay, got %+v err=%v", got, err)
	}
	if err := mc.Get(ctx, "short", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("explicit expiration still applies, got %v", err)
	}
}
