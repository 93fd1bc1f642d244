package sink

import (
	"sync"

	"github.com/gyaneshwarpardhi/flatten/internal/event"
)

// BufferingEmitter collects events in memory. It is safe for concurrent use.
type BufferingEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

func NewBufferingEmitter() *BufferingEmitter {
	return &BufferingEmitter{events: make([]event.Event, 0)}
}

func (b *BufferingEmitter) Emit(ev event.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Events returns a copy of the collected events.
func (b *BufferingEmitter) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Len returns how many events were collected.
func (b *BufferingEmitter) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
