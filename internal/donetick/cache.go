package donetick

import (
	"sync"
	"time"
)

// choreCache is a short-TTL snapshot cache keyed by chore id. The upstream
// API has no single-resource fetch, so list responses populate it and
// GetChore reads through it. Entries older than the TTL are treated as
// absent; mutations invalidate their entry so a stale snapshot is never
// returned after a write.
type choreCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[int64]cacheEntry
	now     func() time.Time
	hits    int64
	misses  int64
}

type cacheEntry struct {
	chore    Chore
	storedAt time.Time
}

func newChoreCache(ttl time.Duration) *choreCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &choreCache{
		ttl:     ttl,
		entries: make(map[int64]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached snapshot for id if it is younger than the TTL.
func (c *choreCache) Get(id int64) (Chore, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return Chore{}, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.chore, true
}

// Put overwrites the entry for the chore's id with the current timestamp.
func (c *choreCache) Put(chore Chore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[chore.ID] = cacheEntry{chore: chore, storedAt: c.now()}
}

// PutAll stores every chore in one lock acquisition. Used by list
// operations to opportunistically warm the cache.
func (c *choreCache) PutAll(chores []Chore) {
	stored := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, chore := range chores {
		c.entries[chore.ID] = cacheEntry{chore: chore, storedAt: stored}
	}
}

// Invalidate removes the entry for id, independent of its age.
func (c *choreCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear empties the whole cache.
func (c *choreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Size returns the number of entries, stale ones included.
func (c *choreCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports hit/miss counters since the last Clear.
func (c *choreCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
