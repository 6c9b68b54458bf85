// ABOUTME: Thread-safe TTL cache of user profile lookups
// ABOUTME: Bounded in size with oldest-first eviction and a background sweep

package profilecache

import (
	"container/list"
	"sync"
	"time"
)

// Profile is the cached part of a user record.
type Profile struct {
	FirstName string
	LastName  string
}

type cacheEntry struct {
	profile  Profile
	storedAt time.Time
	element  *list.Element
}

// Cache holds profiles keyed by user ID. Entries expire after the TTL and
// the oldest entry is evicted when the cache is full.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   *list.List // user IDs, oldest at front
	ttl     time.Duration
	maxSize int
	sweep   time.Duration
	done    chan struct{}
	closed  bool
}

// New creates a cache and starts its sweep goroutine. Call Close when done.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	sweep := time.Minute
	if ttl < sweep {
		sweep = ttl
	}
	c := &Cache{
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		sweep:   sweep,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get returns the cached profile if present and not expired.
func (c *Cache) Get(userID string) (Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[userID]
	if !ok || time.Since(entry.storedAt) >= c.ttl {
		return Profile{}, false
	}
	return entry.profile, true
}

// Put stores a profile, refreshing its timestamp if already present.
func (c *Cache) Put(userID string, p Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, ok := c.entries[userID]; ok {
		entry.profile = p
		entry.storedAt = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(userID)
	c.entries[userID] = &cacheEntry{profile: p, storedAt: now, element: elem}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	userID, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, userID)
}

func (c *Cache) cleanup() {
	if c.sweep <= 0 {
		<-c.done
		return
	}
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for userID, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			c.order.Remove(entry.element)
			delete(c.entries, userID)
		}
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
