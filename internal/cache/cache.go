// Package cache provides a time-boxed response cache keyed by normalized
// query plus an optional context discriminator.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

// Config holds cache configuration.
type Config struct {
	MaxSize int
	TTL     time.Duration
}

const (
	defaultMaxSize = 100
	defaultTTL     = time.Hour
)

// Entry is one cached response.
type Entry struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
	Hits      int       `json:"hits"`
}

// ResponseCache caches responses for a bounded time. Expiry is lazy: an
// expired entry found on Get is deleted and treated as absent. When the
// table overflows MaxSize, exactly one oldest-by-insertion entry is evicted
// per overflowing insertion. This is deliberately not LRU: reads do not
// refresh timestamps, keeping the policy simple and predictable.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxSize int
	ttl     time.Duration
	clock   clockwork.Clock
	store   Store
	logger  log.Logger
}

// New creates a ResponseCache. A non-nil store is loaded on construction and
// mirrored on every Set, both best-effort: store failures are logged, never
// surfaced, since caching is an optimization and the store may be wiped at
// any time.
func New(cfg Config, clock clockwork.Clock, store Store, logger log.Logger) *ResponseCache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.Nop()
	}

	c := &ResponseCache{
		entries: make(map[string]*Entry),
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		clock:   clock,
		store:   store,
		logger:  logger,
	}
	c.restore()
	return c
}

// Get returns the cached response for a query, or ok=false when absent or
// expired. A hit increments the entry's hit counter.
func (c *ResponseCache) Get(query, contextKey string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, contextKey)
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.clock.Now().Sub(e.CreatedAt) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	e.Hits++
	return e.Response, true
}

// Set inserts or overwrites unconditionally, then evicts the single entry
// with the oldest insertion timestamp if the table exceeds MaxSize.
func (c *ResponseCache) Set(query, response, contextKey string) {
	c.mu.Lock()
	key := cacheKey(query, contextKey)
	c.entries[key] = &Entry{
		Query:     query,
		Response:  response,
		CreatedAt: c.clock.Now(),
	}
	if len(c.entries) > c.maxSize {
		c.evictOldestLocked()
	}
	c.mu.Unlock()

	c.persist()
}

// Len returns the current number of entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
	c.persist()
}

// evictOldestLocked removes the entry with the oldest insertion timestamp.
// Caller must hold c.mu.
func (c *ResponseCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey = k
			oldest = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cacheKey builds the lookup key: the normalized query, plus the context
// discriminator so the same question under different situational context
// does not collide.
func cacheKey(query, contextKey string) string {
	key := normalize(query)
	if contextKey != "" {
		key += "::" + normalize(contextKey)
	}
	return key
}

// normalize case-folds and trims surrounding whitespace only. Near-duplicate
// phrasing is a cache miss by design.
func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func (c *ResponseCache) persist() {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	snapshot := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		snapshot[k] = *e
	}
	c.mu.Unlock()

	if err := c.store.Save(snapshot); err != nil {
		c.logger.Warnf(context.Background(), "cache: persist failed: %v", err)
	}
}

func (c *ResponseCache) restore() {
	if c.store == nil {
		return
	}
	snapshot, err := c.store.Load()
	if err != nil {
		c.logger.Warnf(context.Background(), "cache: restore failed: %v", err)
		return
	}
	c.mu.Lock()
	for k, e := range snapshot {
		e := e
		c.entries[k] = &e
	}
	c.mu.Unlock()
}
