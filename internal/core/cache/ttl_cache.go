// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the in-memory, time-bounded caches used by the
// catalog pipeline. Each cache is an explicit object owned by one pipeline
// instance rather than a process-wide global, with an injectable clock so
// expiry can be tested deterministically.
//
// Logic Flow (Load):
//  1. Look the key up. A live entry (younger than the TTL) is returned as is,
//     the very same payload that was stored, and no loader runs.
//  2. On a miss, the call joins the pending operation registered for that key
//     (golang.org/x/sync/singleflight). Only the first caller runs the loader,
//     every concurrent caller for the same key waits for and shares its result.
//  3. A successful load is stored with the current clock time. A failed load is
//     not stored, so the next access retries. A loader panic is returned as an
//     error wrapping ErrLoadPanicked.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock returns the current time. Tests replace it to move time forward.
type Clock func() time.Time

// Entry is a cached payload together with the time it was stored.
type Entry[V any] struct {
	StoredAt time.Time
	Value    V
}

// TTLCache is a key -> Entry store where entries die TTL after being stored.
// It is safe for concurrent use.
type TTLCache[V any] struct {
	name    string
	ttl     time.Duration
	clock   Clock
	mu      sync.RWMutex
	entries map[string]Entry[V]
	pending singleflight.Group
}

// Option configures a TTLCache.
type Option[V any] func(*TTLCache[V])

// WithClock replaces the wall clock.
func WithClock[V any](clock Clock) Option[V] {
	return func(c *TTLCache[V]) {
		c.clock = clock
	}
}

// New creates an empty cache. The name only shows up in logs and spans.
func New[V any](name string, ttl time.Duration, opts ...Option[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		name:    name,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]Entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the cache name.
func (c *TTLCache[V]) Name() string {
	return c.name
}

// TTL returns the time-to-live of entries in this cache.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[V]) alive(e Entry[V], now time.Time) bool {
	return now.Sub(e.StoredAt) < c.ttl
}

// Get returns the live entry for key, if any. Dead entries are reported as
// misses but left in place until they are overwritten or swept.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.alive(e, c.clock()) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Set stores value under key, stamped with the current clock time.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = Entry[V]{StoredAt: c.clock(), Value: value}
	c.mu.Unlock()
}

// Len returns the number of stored entries, dead or alive.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep drops every dead entry and returns how many were removed. It never
// removes a live entry, so it is housekeeping and not invalidation.
func (c *TTLCache[V]) Sweep() int {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !c.alive(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// ErrLoadPanicked wraps the value of a panic raised by a loader.
var ErrLoadPanicked = errors.New("load panicked")

// LoadFunc produces the value for a missing key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// Load returns the live value for key, or runs load exactly once across all
// concurrent callers of the same key and caches its successful result.
// The second return value reports whether the value came from the cache.
//
// The loader runs on a context detached from the first caller's cancellation,
// because its result is shared with callers that may still be waiting; loaders
// are expected to bound themselves with their own timeout.
func (c *TTLCache[V]) Load(ctx context.Context, key string, load LoadFunc[V]) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	ch := c.pending.DoChan(key, func() (val interface{}, err error) {
		// singleflight re-panics on its own goroutine, where no caller can recover.
		defer func() {
			if r := recover(); r != nil {
				val, err = nil, fmt.Errorf("cache %s: %w: %v", c.name, ErrLoadPanicked, r)
			}
		}()
		// Another caller may have filled the entry between our Get and joining the group.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, false, res.Err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}
