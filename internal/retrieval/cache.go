package retrieval

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// DefaultCacheCapacity is the number of ids whose block state is remembered.
const DefaultCacheCapacity = 128

// AccessState is what the download gate needs to know about an id.
type AccessState struct {
	Exists  bool
	Blocked bool
}

type cacheEntry struct {
	state   AccessState
	expires time.Time
}

// AccessCache remembers block state per asset id with least-recently-used
// eviction. One mutex guards every operation. With a zero TTL entries live
// until evicted or invalidated, so an external flag change is not observed
// before then.
type AccessCache struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

// NewAccessCache builds a cache holding at most capacity ids.
func NewAccessCache(capacity int, ttl time.Duration) *AccessCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &AccessCache{
		lru: lru.New(capacity),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached state for id and marks it most recently used.
func (c *AccessCache) Get(id int64) (AccessState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(id)
	if !ok {
		return AccessState{}, false
	}
	entry := v.(cacheEntry)
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		c.lru.Remove(id)
		return AccessState{}, false
	}
	return entry.state, true
}

// Add stores state for id, evicting the least recently used id when full.
func (c *AccessCache) Add(id int64, state AccessState) {
	entry := cacheEntry{state: state}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}
	c.lru.Add(id, entry)
}

// Invalidate drops id so the next lookup reads the store.
func (c *AccessCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(id)
}

// Len reports how many ids are cached.
func (c *AccessCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
