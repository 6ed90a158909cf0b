// Package cache memoizes CLI snapshots for a short TTL and falls back to
// the last good snapshot when a refresh fails.
//
// A Cache is created once at startup and lives until the process exits.
// Entries are replaced wholesale, never mutated in place.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stellarlinkco/clawdash/internal/logger"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

// FetchFunc produces a fresh snapshot. A nil snapshot or a non-nil error
// both count as a failed refresh.
type FetchFunc func(ctx context.Context) (*snapshot.Raw, error)

// Result is what a caller sees for one key.
//
// Cached is set when Data came from memory rather than the fetch that
// this call triggered. Stale is set when a refresh was attempted and
// failed; Data is then the previous snapshot, or nil if there never was
// one.
type Result struct {
	Data      *snapshot.Raw
	Stale     bool
	Cached    bool
	FetchedAt time.Time
}

type entry struct {
	data      *snapshot.Raw
	fetchedAt time.Time
	expired   bool
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     logger.WithComponent("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for one command and argument set.
func Key(command string, args ...string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

// Get returns the entry for key if younger than ttl, otherwise refreshes
// it through fetch. Concurrent refreshes of one key share a single fetch.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) Result {
	if e := c.load(key); e != nil && !e.expired && c.now().Sub(e.fetchedAt) < ttl {
		return Result{Data: e.data, Cached: true, FetchedAt: e.fetchedAt}
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		data, err := fetch(ctx)
		if err != nil || data == nil {
			c.log.Debug().Err(err).Str("key", key).Msg("refresh failed")
			return (*entry)(nil), nil
		}
		e := &entry{data: data, fetchedAt: c.now()}
		c.store(key, e)
		return e, nil
	})

	if e, _ := v.(*entry); e != nil {
		return Result{Data: e.data, FetchedAt: e.fetchedAt}
	}

	if prev := c.load(key); prev != nil {
		c.log.Info().Str("key", key).Time("fetchedAt", prev.fetchedAt).Msg("serving stale snapshot")
		return Result{Data: prev.data, Stale: true, Cached: true, FetchedAt: prev.fetchedAt}
	}
	return Result{Stale: true}
}

// Peek returns the stored entry without refreshing.
func (c *Cache) Peek(key string) (Result, bool) {
	e := c.load(key)
	if e == nil {
		return Result{}, false
	}
	return Result{Data: e.data, Cached: true, FetchedAt: e.fetchedAt}, true
}

// Invalidate forces the next Get for key to refresh. The current
// snapshot is kept as the stale fallback.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.entries[key] = &entry{data: e.data, fetchedAt: e.fetchedAt, expired: true}
	}
	c.mu.Unlock()
}

func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (c *Cache) load(key string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *Cache) store(key string, e *entry) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}
