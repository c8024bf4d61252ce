// Package notify provides the in-process bus front ends use to learn that
// tasks changed and their views need refreshing.
package notify

import (
	"context"
	"time"
)

// EventType identifies the kind of change.
type EventType string

const (
	TypeAny       EventType = ""               // subscription wildcard
	TypeCreated   EventType = "task_created"   // new task inserted
	TypeUpdated   EventType = "task_updated"   // fields edited
	TypeCompleted EventType = "task_completed" // status set to Completed
)

// Event describes one change to one task.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TaskID    int64     `json:"task_id"`
	Fields    []string  `json:"fields,omitempty"` // columns written by an update
	Timestamp time.Time `json:"timestamp"`
}

// Handler processes a published event.
type Handler func(ctx context.Context, ev *Event) error

// Bus delivers change events to subscribers.
type Bus interface {
	// Publish delivers ev to every handler subscribed to its type and to
	// TypeAny.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for events of type t. Returns an
	// unsubscribe function.
	Subscribe(t EventType, handler Handler) (unsubscribe func())

	// History returns recent events for taskID, or for all tasks when taskID
	// is 0.
	History(taskID int64, limit int) ([]*Event, error)
}
