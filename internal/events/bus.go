package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event *Event)

type subscription struct {
	handler Handler
	id      uint64
}

// Bus is an in-process event bus
type Bus struct {
	subscribers map[EventType][]subscription
	log         zerolog.Logger
	nextID      uint64
	mu          sync.RWMutex
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType][]subscription),
		log:         log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type and returns a function
// that removes it
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit publishes typed data to every subscriber of its event type
func (b *Bus) Emit(module string, data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[event.Type]))
	copy(subs, b.subscribers[event.Type])
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(event.Type)).
		Str("module", module).
		Int("subscribers", len(subs)).
		Msg("Event emitted")

	for _, s := range subs {
		s.handler(event)
	}
}

// SubscriberCount returns the number of handlers for an event type
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
