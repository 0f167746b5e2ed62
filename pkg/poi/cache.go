package poi

import (
	"sync"
	"time"

	"github.com/kass/go-skytrack/pkg/models"
)

type cacheEntry struct {
	pois      []models.POI
	fetchedAt time.Time
}

// Cache is a process-wide TTL cache of POI result sets keyed by bounding
// box. The clock is injected so tests can control freshness. Entries are
// replaced wholesale on refresh; expiry alone never evicts, so a stale
// entry stays available when a refresh fails.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewCache creates a Cache with the given TTL. A nil now defaults to
// time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

// Get returns the cached value for key. fresh reports whether the entry is
// within its TTL; ok reports whether any entry exists at all.
func (c *Cache) Get(key string) (pois []models.POI, fresh, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.pois, c.now().Sub(e.fetchedAt) < c.ttl, true
}

// Put stores a value for key with the current timestamp, replacing any
// previous entry.
func (c *Cache) Put(key string, pois []models.POI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{pois: pois, fetchedAt: c.now()}
}

// Invalidate drops the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
