package ai

import (
	"sync"
	"time"

	"tradecontrol/internal/core"
)

// DefaultCacheTTL is how long an analyzer verdict stays valid
const DefaultCacheTTL = 300 * time.Second

type cachedScore struct {
	score      core.AiScore
	insertedAt time.Time
}

// ScoreCache memoizes analyzer results per token. Expired entries are
// evicted lazily on Get. With maxEntries > 0 the oldest entry is dropped
// when an insert would exceed the bound.
type ScoreCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]cachedScore
	now     func() time.Time
}

func NewScoreCache(ttl time.Duration, maxEntries int) *ScoreCache {
	return &ScoreCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cachedScore),
		now:        time.Now,
	}
}

// WithClock replaces the wall clock
func (c *ScoreCache) WithClock(now func() time.Time) *ScoreCache {
	c.now = now
	return c
}

// Get returns the cached score if it is younger than the TTL
func (c *ScoreCache) Get(key string) (core.AiScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return core.AiScore{}, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return core.AiScore{}, false
	}
	return entry.score, true
}

// Insert stores or overwrites a score stamped with the current time
func (c *ScoreCache) Insert(key string, score core.AiScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cachedScore{score: score, insertedAt: c.now()}
}

func (c *ScoreCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len counts stored entries, including expired ones not yet evicted
func (c *ScoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ScoreCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.insertedAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
