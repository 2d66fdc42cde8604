// Package signal delivers the refresh and feedback notifications the counter
// core emits after each change.
package signal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event tells a subscriber the shared store may have changed. It carries no
// state: subscribers re-read the store.
type Event struct {
	ID string
	At time.Time
}

// Hub broadcasts refresh events to every subscriber. A subscriber that has
// not drained its previous event does not receive another one: a pending
// event already means "re-read".
type Hub struct {
	mu     sync.Mutex
	subs   map[string]chan Event
	closed bool
	now    func() time.Time
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]chan Event),
		now:  time.Now,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.New().String()
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// NotifyRefreshNeeded sends one event to every subscriber without blocking.
func (h *Hub) NotifyRefreshNeeded() {
	h.mu.Lock()
	defer h.mu.Unlock()

	ev := Event{ID: uuid.New().String(), At: h.now()}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close unregisters every subscriber and closes their channels. Later
// notifications are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
