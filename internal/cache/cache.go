// Package cache provides an in-process TTL cache that serves stale values when a refresh fails.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds a single refresh when no timeout is configured
const DefaultRefreshTimeout = 30 * time.Second

// RefreshFunc produces a fresh value for a key
type RefreshFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// Stats is a snapshot of cache counters
type Stats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Refreshes   int64 `json:"refreshes"`
	StaleServes int64 `json:"stale_serves"`
	Failures    int64 `json:"failures"`
}

// Cache is a keyed store of (value, fetched-at) pairs.
// At most one refresh per key is in flight; concurrent callers share its result.
// Entries live for the lifetime of the process and are never evicted on failure.
type Cache struct {
	group          singleflight.Group
	log            zerolog.Logger
	entries        map[string]*entry
	now            func() time.Time
	refreshTimeout time.Duration
	mu             sync.RWMutex

	hits        atomic.Int64
	misses      atomic.Int64
	refreshes   atomic.Int64
	staleServes atomic.Int64
	failures    atomic.Int64
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithRefreshTimeout bounds each refresh call
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// New creates an empty cache
func New(log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		entries:        make(map[string]*entry),
		log:            log.With().Str("component", "cache").Logger(),
		now:            time.Now,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRefresh returns the cached value for key if it is younger than ttl.
// Otherwise it runs refresh once for all concurrent callers of the same key.
// If refresh fails and a previous value exists, that value is returned without error.
// If there is no previous value the error wraps domain.ErrNoCacheAvailable and the cause.
//
// The refresh runs detached from ctx cancellation, so a caller that gives up
// still leaves the cache warm for the next one.
func (c *Cache) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc) (any, error) {
	if v, ok := c.fresh(key, ttl); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that finished just before this one may have stored a fresh value
		if v, ok := c.fresh(key, ttl); ok {
			return v, nil
		}
		return c.refresh(ctx, key, refresh)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", key, ctx.Err())
	}
}

func (c *Cache) refresh(ctx context.Context, key string, refresh RefreshFunc) (any, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	c.refreshes.Add(1)
	value, err := refresh(rctx)
	if err == nil {
		c.mu.Lock()
		c.entries[key] = &entry{value: value, fetchedAt: c.now()}
		c.mu.Unlock()
		return value, nil
	}

	c.failures.Add(1)

	c.mu.RLock()
	prior, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.staleServes.Add(1)
		c.log.Warn().
			Err(err).
			Str("key", key).
			Str("kind", string(domain.ClassifyError(err))).
			Dur("age", c.now().Sub(prior.fetchedAt)).
			Msg("Refresh failed, serving stale value")
		return prior.value, nil
	}

	c.log.Error().
		Err(err).
		Str("key", key).
		Str("kind", string(domain.ClassifyError(err))).
		Msg("Refresh failed with nothing cached")
	return nil, fmt.Errorf("%s: %w: %w", key, domain.ErrNoCacheAvailable, err)
}

func (c *Cache) fresh(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.stale {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores a value as freshly fetched
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, fetchedAt: c.now()}
}

// Peek returns the stored value and its fetch time, however stale
func (c *Cache) Peek(key string) (any, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}

// Invalidate forces the next read of key to refresh.
// The value is kept so it can still be served if that refresh fails.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// Stats returns current counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:     n,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Refreshes:   c.refreshes.Load(),
		StaleServes: c.staleServes.Load(),
		Failures:    c.failures.Load(),
	}
}

// Get is a typed wrapper around GetOrRefresh
func Get[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, refresh func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrRefresh(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return refresh(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s has type %T, want %T", key, v, zero)
	}
	return typed, nil
}
