// Package cache holds server collections keyed by resource and filter.
//
// Reads go through Load, which returns the cached value unless it was never
// fetched or has been invalidated. Concurrent loads of the same key are not
// merged: each one fetches and the last to finish wins. A fetch that started
// before an Invalidate still stores its result, but the entry stays stale so
// the next Load fetches again.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/budgie-app/budgie/internal/model"
)

// Status is the fetch state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Key identifies one variant of a resource. Filter is the canonical query
// encoding of the variant, empty for the unfiltered collection.
type Key struct {
	Resource model.Resource
	Filter   string
}

func (k Key) String() string {
	if k.Filter == "" {
		return string(k.Resource)
	}
	return string(k.Resource) + "?" + k.Filter
}

// Entry is a snapshot of one cached variant.
type Entry struct {
	Data      any
	Status    Status
	Err       error
	Stale     bool
	FetchedAt time.Time
}

type entry struct {
	Entry
	loaded bool
	gen    uint64
}

// Cache is safe for concurrent use. The lock guards the map only and is never
// held while fetching or notifying.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	listeners map[int]func(Event)
	nextID    int
	gen       uint64
	now       func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries:   make(map[Key]*entry),
		listeners: make(map[int]func(Event)),
		now:       time.Now,
	}
}

// Load returns the cached data for key, calling fetch when the entry is
// missing or stale. On failure the previous data is kept, the entry moves to
// StatusError and the fetch error is returned unchanged.
func Load[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if data, ok := c.fresh(key); ok {
		if v, ok := data.(T); ok {
			return v, nil
		}
	}

	gen := c.begin(key)
	v, err := fetch(ctx)
	if err != nil {
		c.fail(key, err)
		var zero T
		return zero, err
	}
	c.store(key, gen, v)
	return v, nil
}

// Peek returns a snapshot of key without fetching.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Keys returns every key currently held for resource.
func (c *Cache) Keys(resource model.Resource) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []Key
	for k := range c.entries {
		if k.Resource == resource {
			keys = append(keys, k)
		}
	}
	return keys
}

// Invalidate marks every variant of resource stale.
func (c *Cache) Invalidate(resource model.Resource) {
	c.mu.Lock()
	var events []Event
	for k, e := range c.entries {
		if k.Resource != resource {
			continue
		}
		c.markStale(e)
		events = append(events, Event{Kind: EventInvalidated, Key: k})
	}
	c.mu.Unlock()
	c.notify(events)
}

// Patch rewrites the data of every loaded variant of resource in place. fn
// returns false when a variant cannot be patched; that variant is marked
// stale instead. Variants whose data is not a T are marked stale too, as are
// variants still waiting on their first fetch.
func Patch[T any](c *Cache, resource model.Resource, fn func(key Key, data T) (T, bool)) {
	c.mu.Lock()
	var events []Event
	for k, e := range c.entries {
		if k.Resource != resource {
			continue
		}
		if data, ok := e.Data.(T); ok && e.loaded {
			if next, ok := fn(k, data); ok {
				e.Data = next
				events = append(events, Event{Kind: EventUpdated, Key: k})
				continue
			}
		}
		c.markStale(e)
		events = append(events, Event{Kind: EventInvalidated, Key: k})
	}
	c.mu.Unlock()
	c.notify(events)
}

// Clear drops every entry. Listeners are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// markStale must be called with c.mu held. Generations are cache-wide so a
// fetch that straddles Clear never matches a recreated entry.
func (c *Cache) markStale(e *entry) {
	c.gen++
	e.gen = c.gen
	e.Stale = true
}

func (c *Cache) fresh(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.loaded || e.Stale {
		return nil, false
	}
	return e.Data, true
}

func (c *Cache) begin(key Key) uint64 {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.gen++
		e = &entry{gen: c.gen}
		c.entries[key] = e
	}
	e.Status = StatusLoading
	gen := e.gen
	c.mu.Unlock()
	c.notify([]Event{{Kind: EventLoading, Key: key}})
	return gen
}

func (c *Cache) store(key Key, gen uint64, data any) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.Data = data
	e.loaded = true
	e.Status = StatusReady
	e.Err = nil
	e.FetchedAt = c.now()
	e.Stale = e.gen != gen
	c.mu.Unlock()
	c.notify([]Event{{Kind: EventUpdated, Key: key}})
}

func (c *Cache) fail(key Key, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.Status = StatusError
	e.Err = err
	c.mu.Unlock()
	c.notify([]Event{{Kind: EventFailed, Key: key}})
}
