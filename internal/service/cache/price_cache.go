package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

const (
	SourceLive = "coingecko"
	SourceHit  = "coingecko_cache"

	DefaultTTL = 60 * time.Second
)

var errNoAssets = errors.New("no assets selected")

// PriceCache is a short-TTL cache of batched quote lookups keyed by the
// sorted, canonical asset-id set. Entries are superseded, never evicted.
type PriceCache struct {
	mu      sync.RWMutex
	entries map[string]models.PriceCacheEntry

	src     service.QuoteSource
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

type Option func(*PriceCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *PriceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) { c.now = now }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(c *PriceCache) { c.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *PriceCache) { c.logger = l }
}

func NewPriceCache(src service.QuoteSource, opts ...Option) *PriceCache {
	c := &PriceCache{
		entries: make(map[string]models.PriceCacheEntry),
		src:     src,
		ttl:     DefaultTTL,
		now:     time.Now,
		metrics: metrics.Nop{},
		logger:  applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for ids: canonical, deduplicated, sorted and comma joined.
func Key(ids []string) string {
	canon := models.CanonicalAssets(ids)
	sort.Strings(canon)
	return strings.Join(canon, ",")
}

// GetOrFetch returns the price table for ids as a section result. Failures
// come back as a result with an error message and an empty table.
func (c *PriceCache) GetOrFetch(ctx context.Context, ids []string) models.SectionResult {
	table, source, err := c.lookup(ctx, ids)
	if err != nil {
		return models.SectionResult{Source: SourceLive, Data: models.PriceTable{}, Error: describe(err)}
	}
	return models.SectionResult{Source: source, Data: table}
}

// Quotes returns the typed price table for ids.
func (c *PriceCache) Quotes(ctx context.Context, ids []string) (models.PriceTable, error) {
	table, _, err := c.lookup(ctx, ids)
	return table, err
}

func (c *PriceCache) lookup(ctx context.Context, ids []string) (models.PriceTable, string, error) {
	canon := models.CanonicalAssets(ids)
	if len(canon) == 0 {
		return nil, "", errNoAssets
	}
	key := Key(canon)

	if table, ok := c.fresh(key); ok {
		c.metrics.RecordPriceCache("hit")
		return table, SourceHit, nil
	}
	c.metrics.RecordPriceCache("miss")

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		start := c.now()
		table, err := c.src.SimplePrice(context.WithoutCancel(ctx), canon)
		c.metrics.RecordLatency("upstream_coingecko_price", c.now().Sub(start).Seconds())
		if err != nil {
			return nil, err
		}
		if len(table) == 0 {
			return nil, models.ErrUpstreamEmpty
		}
		c.store(key, table)
		return table, nil
	})
	if err != nil {
		c.metrics.RecordError("price_fetch")
		c.logger.Warn("price fetch failed", applogger.String("key", key), applogger.Error(err))
		return nil, "", err
	}
	return v.(models.PriceTable), SourceLive, nil
}

func (c *PriceCache) fresh(key string) (models.PriceTable, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(time.Unix(0, e.Timestamp)) >= c.ttl {
		return nil, false
	}
	return e.Data, true
}

func (c *PriceCache) store(key string, table models.PriceTable) {
	c.mu.Lock()
	c.entries[key] = models.PriceCacheEntry{Key: key, Timestamp: c.now().UnixNano(), Data: table}
	c.mu.Unlock()
}

func describe(err error) string {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return "rate limited by CoinGecko (HTTP 429), try again shortly"
	case errors.Is(err, errNoAssets):
		return errNoAssets.Error()
	case errors.Is(err, models.ErrUpstreamEmpty):
		return "no data: likely invalid ids or throttling"
	default:
		return fmt.Sprintf("price source unavailable: %v", err)
	}
}
