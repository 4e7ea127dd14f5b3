// Package cache provides a TTL'd single-flight result cache keyed by
// content fingerprint. Concurrent requests for the same fingerprint
// share one computation instead of stampeding the providers.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/underwrite/internal/validate"
)

type entry struct {
	run     *validate.Run
	expires time.Time
}

// Cache stores completed validation runs for a bounded time. Expired
// entries are evicted lazily on access.
type Cache struct {
	ttl    time.Duration
	mu     sync.Mutex
	items  map[string]entry
	flight singleflight.Group
	now    func() time.Time
}

// New creates a cache. A non-positive ttl disables caching entirely:
// every call computes, though still de-duplicated in flight.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		items: make(map[string]entry),
		now:   time.Now,
	}
}

// GetOrCompute returns the cached run for fingerprint, or invokes fn at
// most once across concurrent callers and caches its result. Errors are
// never cached.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, fn func(ctx context.Context) (*validate.Run, error)) (*validate.Run, bool, error) {
	if run, ok := c.lookup(fingerprint); ok {
		return run, true, nil
	}

	v, err, shared := c.flight.Do(fingerprint, func() (any, error) {
		// Re-check under the flight: another caller may have just
		// populated the entry.
		if run, ok := c.lookup(fingerprint); ok {
			return run, nil
		}
		run, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(fingerprint, run)
		return run, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*validate.Run), shared, nil
}

// Invalidate drops the entry for fingerprint.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, fingerprint)
}

// Len returns the number of live entries, evicting expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.items {
		if now.After(e.expires) {
			delete(c.items, k)
		}
	}
	return len(c.items)
}

func (c *Cache) lookup(fingerprint string) (*validate.Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[fingerprint]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.items, fingerprint)
		return nil, false
	}
	return e.run, true
}

func (c *Cache) store(fingerprint string, run *validate.Run) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[fingerprint] = entry{run: run, expires: c.now().Add(c.ttl)}
}
