// Package bus fans dashboard events out to live subscribers.
package bus

import (
	"sync"
	"time"
)

type EventType string

const (
	EventStatus   EventType = "status"
	EventActivity EventType = "activity"
	EventMemory   EventType = "memory"
)

type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Hub is a broadcast hub. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel func closes
// the channel and is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers e to every subscriber with room and reports how many
// received it.
func (h *Hub) Publish(e Event) int {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
