package judge

import (
	"sync"
	"time"
)

// Cache stores parsed judgments keyed by content fingerprint.
type Cache interface {
	Get(key string) (Result, bool)
	Set(key string, result Result)
	Len() int
	Close()
}

type cacheEntry struct {
	insertedAt time.Time
	expiresAt  time.Time
	result     Result
}

// memoryCache is a TTL cache with a hard capacity. When full, the entry
// that has been resident longest is evicted, regardless of recency of use.
type memoryCache struct {
	entries  map[string]cacheEntry
	stopCh   chan struct{}
	ttl      time.Duration
	capacity int
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewMemoryCache creates a bounded in-memory judgment cache. A background
// goroutine sweeps expired entries until Close is called.
func NewMemoryCache(ttl time.Duration, capacity int) Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if capacity <= 0 {
		capacity = 10000
	}
	c := &memoryCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		stopCh:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *memoryCache) Get(key string) (Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return Result{}, false
	}
	return entry.result, true
}

func (c *memoryCache) Set(key string, result Result) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{
		result:     result,
		insertedAt: now,
		expiresAt:  now.Add(c.ttl),
	}
}

// evictOldestLocked removes the entry with the earliest insertion time.
// Caller must hold the write lock.
func (c *memoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *memoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
