package cache

// EventKind says what happened to an entry.
type EventKind int

const (
	EventLoading EventKind = iota
	EventUpdated
	EventFailed
	EventInvalidated
)

func (k EventKind) String() string {
	switch k {
	case EventLoading:
		return "loading"
	case EventUpdated:
		return "updated"
	case EventFailed:
		return "failed"
	case EventInvalidated:
		return "invalidated"
	}
	return "unknown"
}

// Event is delivered to subscribers after the cache lock is released.
type Event struct {
	Kind EventKind
	Key  Key
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. fn runs on the goroutine that caused the event.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
