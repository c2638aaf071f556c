package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

type fakeQuotes struct {
	calls  int32
	table  models.PriceTable
	err    error
	lastID []string
	block  chan struct{}
}

func (f *fakeQuotes) SimplePrice(_ context.Context, ids []string) (models.PriceTable, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	f.lastID = ids
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func btcTable() models.PriceTable {
	ch := 1.5
	return models.PriceTable{"bitcoin": {USD: 65000, Change24h: &ch}}
}

func TestPriceCacheHitWithinTTLAndRefetchAfter(t *testing.T) {
	src := &fakeQuotes{table: btcTable()}
	clk := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	pc := NewPriceCache(src, WithClock(clk.now), WithTTL(60*time.Second))
	ctx := context.Background()

	first := pc.GetOrFetch(ctx, []string{"bitcoin"})
	if first.Source != SourceLive || first.HasError() {
		t.Fatalf("unexpected first result %+v", first)
	}

	second := pc.GetOrFetch(ctx, []string{"bitcoin"})
	if second.Source != SourceHit {
		t.Fatalf("expected cache-hit source, got %q", second.Source)
	}
	if got := atomic.LoadInt32(&src.calls); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}

	clk.advance(61 * time.Second)
	third := pc.GetOrFetch(ctx, []string{"bitcoin"})
	if third.Source != SourceLive {
		t.Fatalf("expected fresh fetch after TTL, got %q", third.Source)
	}
	if got := atomic.LoadInt32(&src.calls); got != 2 {
		t.Fatalf("expected two upstream calls, got %d", got)
	}
}

func TestPriceCacheKeyIsOrderAndCaseInsensitive(t *testing.T) {
	src := &fakeQuotes{table: models.PriceTable{"bitcoin": {USD: 1}, "ethereum": {USD: 2}}}
	pc := NewPriceCache(src)
	ctx := context.Background()

	_ = pc.GetOrFetch(ctx, []string{" Ethereum", "bitcoin", ""})
	if strings.Join(src.lastID, ",") != "ethereum,bitcoin" {
		t.Fatalf("upstream should receive caller order, got %v", src.lastID)
	}
	res := pc.GetOrFetch(ctx, []string{"BITCOIN", "ethereum"})
	if res.Source != SourceHit {
		t.Fatalf("expected hit for reordered set, got %q", res.Source)
	}
	if Key([]string{"b", "A", "a"}) != "a,b" {
		t.Fatalf("unexpected key %q", Key([]string{"b", "A", "a"}))
	}
}

func TestPriceCacheEmptyPayloadIsNotCached(t *testing.T) {
	src := &fakeQuotes{table: models.PriceTable{}}
	pc := NewPriceCache(src)
	ctx := context.Background()

	res := pc.GetOrFetch(ctx, []string{"notacoin"})
	if !res.HasError() || !res.IsEmpty() {
		t.Fatalf("expected error with empty data, got %+v", res)
	}
	if !strings.Contains(res.Error, "no data") {
		t.Fatalf("unexpected message %q", res.Error)
	}
	_ = pc.GetOrFetch(ctx, []string{"notacoin"})
	if got := atomic.LoadInt32(&src.calls); got != 2 {
		t.Fatalf("empty payload must not be cached, calls=%d", got)
	}
}

func TestPriceCacheFailureKeepsPriorEntry(t *testing.T) {
	src := &fakeQuotes{table: btcTable()}
	clk := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	pc := NewPriceCache(src, WithClock(clk.now))
	ctx := context.Background()

	_ = pc.GetOrFetch(ctx, []string{"bitcoin"})
	clk.advance(61 * time.Second)
	src.err = fmt.Errorf("boom: %w", models.ErrUpstreamUnavailable)
	if res := pc.GetOrFetch(ctx, []string{"bitcoin"}); !res.HasError() {
		t.Fatalf("expected error result")
	}

	pc.mu.RLock()
	_, ok := pc.entries["bitcoin"]
	pc.mu.RUnlock()
	if !ok {
		t.Fatalf("failure must not clear the prior entry")
	}
}

func TestPriceCacheRateLimitedIsDistinct(t *testing.T) {
	src := &fakeQuotes{err: fmt.Errorf("coingecko: %w", models.ErrRateLimited)}
	pc := NewPriceCache(src)

	res := pc.GetOrFetch(context.Background(), []string{"bitcoin"})
	if !strings.Contains(res.Error, "429") {
		t.Fatalf("expected rate-limit message, got %q", res.Error)
	}
	if _, err := pc.Quotes(context.Background(), []string{"bitcoin"}); err == nil {
		t.Fatalf("expected error from Quotes")
	}
}

func TestPriceCacheNoAssets(t *testing.T) {
	src := &fakeQuotes{table: btcTable()}
	pc := NewPriceCache(src)

	res := pc.GetOrFetch(context.Background(), []string{" ", ""})
	if res.Error != "no assets selected" || !res.IsEmpty() {
		t.Fatalf("unexpected result %+v", res)
	}
	if src.calls != 0 {
		t.Fatalf("no upstream call expected")
	}
}

func TestPriceCacheCollapsesConcurrentMisses(t *testing.T) {
	src := &fakeQuotes{table: btcTable(), block: make(chan struct{})}
	pc := NewPriceCache(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pc.GetOrFetch(ctx, []string{"bitcoin"})
		}()
	}
	// give goroutines time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	if got := atomic.LoadInt32(&src.calls); got != 1 {
		t.Fatalf("expected concurrent misses to share one call, got %d", got)
	}
}
