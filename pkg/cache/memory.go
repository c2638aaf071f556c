package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// defaultMemoryTTL applies when Set is called without an expiration.
const defaultMemoryTTL = 7 * 24 * time.Hour

type memoryEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

// MemoryCache implements Service in process. Entries are evicted least
// recently used first once MaxSize is reached; expired entries are dropped
// lazily on access and by a periodic sweep. A durable cache never evicts and
// keeps entries without an expiration forever.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List // front is most recently used
	maxSize int
	durable bool
	now     func() time.Time

	sweep     *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         10000,
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: max(cfg.MaxSize, 1),
		durable: cfg.Durable,
		now:     cfg.Now,
		sweep:   time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go mc.sweepLoop()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	mc.put(key, data, expiration)
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := encode(value)
	if err != nil {
		return false, err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.live(key) != nil {
		return false, nil
	}
	mc.put(key, data, expiration)
	return true, nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	e := mc.live(key)
	var data []byte
	if e != nil {
		mc.lru.MoveToFront(mc.items[key])
		data = e.value
	}
	mc.mu.Unlock()

	if e == nil {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, key := range keys {
		mc.remove(key)
	}
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if mc.live(key) != nil {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return mc.SetNX(ctx, key, "locked", ttl)
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len reports the number of stored entries, including expired ones not yet
// swept.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lru.Len()
}

// live returns the unexpired entry for key, dropping it if it has expired.
// Callers hold mu.
func (mc *MemoryCache) live(key string) *memoryEntry {
	el, ok := mc.items[key]
	if !ok {
		return nil
	}
	e := el.Value.(*memoryEntry)
	if e.expired(mc.now()) {
		mc.remove(key)
		return nil
	}
	return e
}

// expired reports whether e is past its deadline. A zero deadline never expires.
func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

func (mc *MemoryCache) put(key string, data []byte, expiration time.Duration) {
	var expireAt time.Time
	switch {
	case expiration > 0:
		expireAt = mc.now().Add(expiration)
	case !mc.durable:
		expireAt = mc.now().Add(defaultMemoryTTL)
	}

	if el, ok := mc.items[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value, e.expireAt = data, expireAt
		mc.lru.MoveToFront(el)
		return
	}
	for !mc.durable && mc.lru.Len() >= mc.maxSize {
		oldest := mc.lru.Back()
		mc.remove(oldest.Value.(*memoryEntry).key)
	}
	mc.items[key] = mc.lru.PushFront(&memoryEntry{key: key, value: data, expireAt: expireAt})
}

func (mc *MemoryCache) remove(key string) {
	if el, ok := mc.items[key]; ok {
		mc.lru.Remove(el)
		delete(mc.items, key)
	}
}

func (mc *MemoryCache) sweepLoop() {
	for {
		select {
		case <-mc.sweep.C:
		case <-mc.done:
			return
		}

		mc.mu.Lock()
		now := mc.now()
		for el := mc.lru.Back(); el != nil; {
			prev := el.Prev()
			if e := el.Value.(*memoryEntry); e.expired(now) {
				mc.remove(e.key)
			}
			el = prev
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweeper. Stored entries stay readable.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.sweep.Stop()
		close(mc.done)
	})
	return nil
}

var _ Service = (*MemoryCache)(nil)
