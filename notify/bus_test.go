package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestInMemoryBus_Subscribe_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var received int32
	unsub := bus.Subscribe(TypeCreated, func(_ context.Context, _ *Event) error {
		atomic.AddInt32(&received, 1)
		return nil
	})

	ev := NewEvent(TypeCreated, 1)
	if err := bus.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("received = %d, want 1", received)
	}

	// Unsubscribe and verify no more events
	unsub()
	if err := bus.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish after unsub: %v", err)
	}
	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("received after unsub = %d, want 1", received)
	}
}

func TestInMemoryBus_TypeRouting(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var created, completed, wildcard int32
	bus.Subscribe(TypeCreated, func(_ context.Context, _ *Event) error {
		atomic.AddInt32(&created, 1)
		return nil
	})
	bus.Subscribe(TypeCompleted, func(_ context.Context, _ *Event) error {
		atomic.AddInt32(&completed, 1)
		return nil
	})
	bus.Subscribe(TypeAny, func(_ context.Context, _ *Event) error {
		atomic.AddInt32(&wildcard, 1)
		return nil
	})

	for _, ev := range []*Event{
		NewEvent(TypeCreated, 1),
		NewEvent(TypeUpdated, 1, "title"),
		NewEvent(TypeCompleted, 1),
	} {
		if err := bus.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish %s: %v", ev.Type, err)
		}
	}

	if created != 1 {
		t.Errorf("created handler fired %d times, want 1", created)
	}
	if completed != 1 {
		t.Errorf("completed handler fired %d times, want 1", completed)
	}
	if wildcard != 3 {
		t.Errorf("wildcard handler fired %d times, want 3", wildcard)
	}
}

func TestInMemoryBus_HandlerError(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var delivered int32
	bus.Subscribe(TypeAny, func(_ context.Context, _ *Event) error {
		return errors.New("view closed")
	})
	bus.Subscribe(TypeAny, func(_ context.Context, _ *Event) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	})

	if err := bus.Publish(ctx, NewEvent(TypeUpdated, 4)); err == nil {
		t.Fatal("expected error from failing handler")
	}
	if atomic.LoadInt32(&delivered) != 1 {
		t.Errorf("second handler delivered %d, want 1", delivered)
	}
}

func TestInMemoryBus_History(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	events := []*Event{
		NewEvent(TypeCreated, 1),
		NewEvent(TypeCreated, 2),
		NewEvent(TypeUpdated, 1, "title"),
		NewEvent(TypeCompleted, 1),
	}
	for _, ev := range events {
		bus.Publish(ctx, ev)
	}

	hist, err := bus.History(1, 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("History(1) len = %d, want 3", len(hist))
	}
	if hist[0].Type != TypeCreated || hist[2].Type != TypeCompleted {
		t.Errorf("History(1) not chronological: %s ... %s", hist[0].Type, hist[2].Type)
	}

	all, err := bus.History(0, 0)
	if err != nil {
		t.Fatalf("History all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("History(0) len = %d, want 4", len(all))
	}
}

func TestInMemoryBus_History_Limit(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		bus.Publish(ctx, NewEvent(TypeUpdated, 7, "tags"))
	}

	hist, err := bus.History(7, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 5 {
		t.Errorf("History with limit 5 returned %d events", len(hist))
	}
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := NewEvent(TypeCreated, 1)
	b := NewEvent(TypeCreated, 1)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("event ids = %q, %q; want distinct non-empty", a.ID, b.ID)
	}
}
