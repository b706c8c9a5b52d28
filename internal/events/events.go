package events

import (
	"sync"

	"clip-library/internal/logging"
)

// Event names published by the backend.
const (
	LibraryChanged = "library-changed"
	ScanProgress   = "scan-progress"
	ThumbReady     = "thumb-ready"
	JobProgress    = "job-progress"
	SearchResults  = "search-results"
)

// Event is one published notification. Payload is event-specific and
// already JSON-serializable.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload"`
}

// Bus fans events out to subscribers. Delivery is best-effort: a
// subscriber that stops draining loses events rather than blocking
// publishers, so every event must be safe to miss (subscribers
// re-derive state, they don't replay deltas).
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe func. The channel is buffered; events published while
// the buffer is full are dropped for that subscriber.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish sends an event to every subscriber without blocking.
func (b *Bus) Publish(name string, payload interface{}) {
	ev := Event{Name: name, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			logging.Debug("event %s dropped for slow subscriber %d", name, id)
		}
	}
}

// SubscriberCount reports how many subscribers are registered.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
