package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time check that InMemoryBus satisfies Bus.
var _ Bus = (*InMemoryBus)(nil)

// InMemoryBus is a thread-safe in-process event bus.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
	history  []*Event
	maxHist  int
	nextID   int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// NewInMemoryBus creates an InMemoryBus with a 1000-event history cap.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[EventType][]handlerEntry),
		maxHist:  1000,
	}
}

// NewEvent builds an event with a fresh id and the current time.
func NewEvent(t EventType, taskID int64, fields ...string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      t,
		TaskID:    taskID,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// Publish records ev and calls the matching handlers outside the lock. Handler
// errors do not stop delivery; the first one is reported.
func (b *InMemoryBus) Publish(ctx context.Context, ev *Event) error {
	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}

	var targets []Handler
	for _, e := range b.handlers[ev.Type] {
		targets = append(targets, e.handler)
	}
	if ev.Type != TypeAny {
		for _, e := range b.handlers[TypeAny] {
			targets = append(targets, e.handler)
		}
	}
	b.mu.Unlock()

	var errs []error
	for _, h := range targets {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish: %d handler error(s): %v", len(errs), errs[0])
	}
	return nil
}

// Subscribe registers a handler for events of type t; TypeAny receives every
// event. The returned function unsubscribes the handler.
func (b *InMemoryBus) Subscribe(t EventType, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[t]
		filtered := entries[:0]
		for _, e := range entries {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = filtered
		}
	}
}

// History returns the most recent limit events for taskID in chronological
// order. A taskID of 0 matches every task; a limit of 0 returns everything
// retained.
func (b *InMemoryBus) History(taskID int64, limit int) ([]*Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []*Event
	for i := len(b.history) - 1; i >= 0; i-- {
		ev := b.history[i]
		if taskID == 0 || ev.TaskID == taskID {
			result = append(result, ev)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	// Reverse to chronological order
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result, nil
}
