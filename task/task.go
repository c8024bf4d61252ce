// Package task defines the task model, its persistence and the service used by
// front ends to create, list, search, update and complete tasks.
package task

import (
	"context"
	"errors"
	"time"
)

// Status represents the lifecycle state of a task. The only transition is
// Open -> Completed.
type Status string

const (
	StatusOpen      Status = "Open"
	StatusCompleted Status = "Completed"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// PriorityAll is the list filter value that disables priority filtering.
const PriorityAll Priority = "All"

// Valid reports whether p is one of Low, Medium or High.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Valid reports whether s is Open or Completed.
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusCompleted
}

// Task is a single tracked unit of work.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Tags        string     `json:"tags,omitempty"` // comma or space separated
}

// NewTask holds the caller-supplied fields of a task about to be inserted.
// Status and CreatedAt are always assigned by the store.
type NewTask struct {
	Title       string
	Description string
	Priority    Priority
	Deadline    *time.Time
	Tags        string
}

// Update lists the fields to change on an existing task. A nil field is left
// unchanged; a non-nil field is written, even when it points at a zero value.
type Update struct {
	Title       *string
	Description *string
	Priority    *Priority
	Deadline    *time.Time
	Tags        *string
}

// Empty reports whether no field is set.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.Deadline == nil && u.Tags == nil
}

// SortField is a column tasks can be ordered by.
type SortField string

const (
	SortNone     SortField = ""
	SortTitle    SortField = "title"
	SortStatus   SortField = "status"
	SortPriority SortField = "priority"
	SortDeadline SortField = "deadline"
)

// Valid reports whether f is empty or one of the sortable columns.
func (f SortField) Valid() bool {
	switch f {
	case SortNone, SortTitle, SortStatus, SortPriority, SortDeadline:
		return true
	}
	return false
}

// SortDirection orders a sorted listing. Anything other than SortAscending
// sorts descending.
type SortDirection string

const (
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// ListOptions controls ordering and filtering of Query.
type ListOptions struct {
	SortField SortField
	Direction SortDirection
	// Priority restricts results to one priority. Empty or PriorityAll lists
	// every task.
	Priority Priority
}

// Criteria maps a column name to the value it must match. The title column
// matches when every whitespace-separated word appears in the title; the
// timestamp columns take any form ParseDeadline accepts and match to the
// second; all other columns require equality.
type Criteria map[string]string

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidInput wraps caller-input validation failures.
	ErrInvalidInput = errors.New("invalid task input")
	// ErrInvalidSortField is returned for a sort column outside the allow-list.
	ErrInvalidSortField = errors.New("invalid sort field")
	// ErrInvalidColumn is returned for a search column outside the allow-list.
	ErrInvalidColumn = errors.New("invalid search column")
	// ErrEmptyCriteria is returned for a search that would match on nothing.
	ErrEmptyCriteria = errors.New("empty search criteria")
	// ErrStorage wraps failures reported by the storage engine.
	ErrStorage = errors.New("task storage failure")
)

// Store persists and retrieves tasks. A Store holds one open connection and
// must be closed exactly once.
type Store interface {
	// Insert persists a new open task and returns its assigned id.
	Insert(ctx context.Context, t NewTask) (int64, error)

	// Get retrieves a task by id.
	Get(ctx context.Context, id int64) (*Task, error)

	// Query returns all tasks, optionally filtered by priority and sorted.
	Query(ctx context.Context, opts ListOptions) ([]*Task, error)

	// Search returns the tasks matching every criterion.
	Search(ctx context.Context, c Criteria) ([]*Task, error)

	// UpdateFields writes the non-nil fields of u.
	UpdateFields(ctx context.Context, id int64, u Update) error

	// Complete marks a task completed at the given time.
	Complete(ctx context.Context, id int64, at time.Time) error

	// Close releases the underlying connection.
	Close() error
}
