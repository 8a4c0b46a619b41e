// Package cache provides TTL-bounded read-through caching for GitHub
// data, backed by the key-value store. The store itself enforces no
// expiry; freshness checks happen here on every read.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"devtracker/internal/store"
	"devtracker/internal/utils"
)

// envelope wraps a cached payload with its write timestamp.
type envelope[T any] struct {
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Cache is a TTL cache for one category of values, namespaced under a
// key prefix in the store. Reads never fail: corrupt or unreadable
// entries are logged and treated as misses, and store write failures
// are swallowed so a broken cache never fails the caller.
type Cache[T any] struct {
	store  *store.Store
	prefix string
	ttl    time.Duration

	// deleteExpired removes an entry from the store when a read finds
	// it expired, instead of leaving it to be overwritten later.
	deleteExpired bool

	// now is replaceable in tests
	now func() time.Time
}

// New creates a cache for values of type T under the given key prefix.
func New[T any](s *store.Store, prefix string, ttl time.Duration, deleteExpired bool) *Cache[T] {
	return &Cache[T]{
		store:         s,
		prefix:        prefix,
		ttl:           ttl,
		deleteExpired: deleteExpired,
		now:           time.Now,
	}
}

// Get returns the cached value for key if present and fresh.
// The second return value reports a usable hit.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	raw, found, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		utils.Warnf("cache read failed for %s%s: %v", c.prefix, key, err)
		return zero, false
	}
	if !found {
		return zero, false
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		utils.Warnf("cache entry corrupt for %s%s, treating as miss: %v", c.prefix, key, err)
		return zero, false
	}

	if c.now().Sub(env.Timestamp) >= c.ttl {
		if c.deleteExpired {
			if err := c.store.Delete(ctx, c.prefix+key); err != nil {
				utils.Warnf("failed to delete expired cache entry %s%s: %v", c.prefix, key, err)
			}
		}
		return zero, false
	}

	return env.Payload, true
}

// Set stores a value under key, stamping the current time. It overwrites
// unconditionally and never fails the caller.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) {
	env := envelope[T]{
		Payload:   value,
		Timestamp: c.now(),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		utils.Warnf("cache marshal failed for %s%s: %v", c.prefix, key, err)
		return
	}

	if err := c.store.Set(ctx, c.prefix+key, raw); err != nil {
		utils.Warnf("cache write failed for %s%s: %v", c.prefix, key, err)
	}
}

// Clear removes a single entry. Clearing an absent entry is a no-op.
func (c *Cache[T]) Clear(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, c.prefix+key); err != nil {
		utils.Warnf("cache clear failed for %s%s: %v", c.prefix, key, err)
	}
}

// ClearAll removes every entry in this cache's namespace.
func (c *Cache[T]) ClearAll(ctx context.Context) {
	if _, err := c.store.DeletePrefix(ctx, c.prefix); err != nil {
		utils.Warnf("cache clear-all failed for %s: %v", c.prefix, err)
	}
}
