package cache

import (
	"container/list"
	"context"
	"path"
	"strings"
	"sync"
	"time"
)

const (
	defaultCapacity        = 10000
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Minute
)

// MemoryConfig configures a MemoryCache.
type MemoryConfig struct {
	Capacity        int           // maximum entries before LRU eviction
	DefaultTTL      time.Duration // applied when Set gets a non-positive ttl
	CleanupInterval time.Duration // expired-entry sweep period; negative disables the sweeper
}

// MemoryCache is an in-process LRU cache with per-entry expiry.
type MemoryCache struct {
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	recency *list.List // front is most recently used

	stop chan struct{}
	done chan struct{}
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a MemoryCache and starts its expiry sweeper.
func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaultTTL
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	c := &MemoryCache{
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		recency:    list.New(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go c.sweep(cfg.CleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

// Get implements CacheService.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memoryEntry)
	if !c.now().Before(e.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.recency.MoveToFront(el)
	return append([]byte(nil), e.value...), true
}

// Set implements CacheService.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	stored := append([]byte(nil), value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value = stored
		e.expiresAt = expiresAt
		c.recency.MoveToFront(el)
		return nil
	}

	for len(c.entries) >= c.capacity {
		c.remove(c.recency.Back())
	}
	c.entries[key] = c.recency.PushFront(&memoryEntry{key: key, value: stored, expiresAt: expiresAt})
	return nil
}

// Invalidate implements CacheService.
func (c *MemoryCache) Invalidate(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.ContainsAny(pattern, "*?[") {
		if el, ok := c.entries[pattern]; ok {
			c.remove(el)
		}
		return nil
	}

	if _, err := path.Match(pattern, ""); err != nil {
		return err
	}
	for key, el := range c.entries {
		if matched, _ := path.Match(pattern, key); matched {
			c.remove(el)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the sweeper.
func (c *MemoryCache) Close() error {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done
	return nil
}

func (c *MemoryCache) sweep(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.recency.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*memoryEntry).expiresAt) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// remove must be called with mu held.
func (c *MemoryCache) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.recency.Remove(el)
	delete(c.entries, el.Value.(*memoryEntry).key)
}

var _ Store = (*MemoryCache)(nil)
