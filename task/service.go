package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskdesk/notify"
)

// Backend names accepted by NewOpener.
const (
	BackendSQL  = "sql"
	BackendGorm = "gorm"
)

// Opener opens a fresh Store. The Service calls it once per operation.
type Opener func() (Store, error)

// NewOpener returns an Opener for the named backend over the database file at
// dbPath. debug only affects the gorm backend's statement logging.
func NewOpener(backend, dbPath string, debug bool) (Opener, error) {
	switch backend {
	case BackendSQL, "":
		return func() (Store, error) { return NewSQLiteStore(dbPath) }, nil
	case BackendGorm:
		return func() (Store, error) { return NewGormStore(dbPath, debug) }, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Service is the entry point front ends use. Every call opens a store,
// performs one operation and closes the store before returning, so no
// connection outlives a call.
type Service struct {
	open   Opener
	logger *slog.Logger
	bus    notify.Bus
	now    func() time.Time
}

// NewService creates a Service. logger defaults to slog.Default(); bus may be
// nil when no one listens for changes.
func NewService(open Opener, logger *slog.Logger, bus notify.Bus) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		open:   open,
		logger: logger,
		bus:    bus,
		now:    time.Now,
	}
}

// Init opens and closes the store once so the database file and table exist.
// Callers treat a failure here as fatal.
func (s *Service) Init(ctx context.Context) error {
	return s.withStore(ctx, "init", func(Store) error { return nil })
}

// CreateTask validates t and inserts it as an open task.
func (s *Service) CreateTask(ctx context.Context, t NewTask) (int64, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return 0, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	p, err := ParsePriority(string(t.Priority))
	if err != nil {
		return 0, err
	}
	t.Priority = p

	var id int64
	err = s.withStore(ctx, "create task", func(st Store) error {
		var err error
		id, err = st.Insert(ctx, t)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, notify.NewEvent(notify.TypeCreated, id))
	return id, nil
}

// GetTask returns a single task.
func (s *Service) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t *Task
	err := s.withStore(ctx, "get task", func(st Store) error {
		var err error
		t, err = st.Get(ctx, id)
		return err
	})
	return t, err
}

// ListTasks returns all tasks, optionally filtered by priority and sorted.
func (s *Service) ListTasks(ctx context.Context, opts ListOptions) ([]*Task, error) {
	if !opts.SortField.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortField, opts.SortField)
	}
	p, err := ParsePriorityFilter(string(opts.Priority))
	if err != nil {
		return nil, err
	}
	opts.Priority = p

	var tasks []*Task
	err = s.withStore(ctx, "list tasks", func(st Store) error {
		var err error
		tasks, err = st.Query(ctx, opts)
		return err
	})
	return tasks, err
}

// FindTasks returns tasks matching every criterion. Empty criteria are
// rejected rather than listing everything.
func (s *Service) FindTasks(ctx context.Context, c Criteria) ([]*Task, error) {
	if len(c) == 0 {
		return nil, ErrEmptyCriteria
	}
	if _, err := searchPlan(c); err != nil {
		return nil, err
	}

	var tasks []*Task
	err := s.withStore(ctx, "find tasks", func(st Store) error {
		var err error
		tasks, err = st.Search(ctx, c)
		return err
	})
	return tasks, err
}

// CompleteTask marks a task completed at completedAt, or now when nil.
// Completing a task twice is allowed and rewrites the completion time.
func (s *Service) CompleteTask(ctx context.Context, id int64, completedAt *time.Time) error {
	at := s.now()
	if completedAt != nil {
		at = *completedAt
	}
	err := s.withStore(ctx, "complete task", func(st Store) error {
		return st.Complete(ctx, id, at)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, notify.NewEvent(notify.TypeCompleted, id))
	return nil
}

// UpdateTask writes the fields set in u and leaves the rest unchanged. An
// empty update succeeds without opening the store.
func (s *Service) UpdateTask(ctx context.Context, id int64, u Update) error {
	if u.Empty() {
		return nil
	}
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		u.Title = &title
	}
	if u.Priority != nil {
		p, err := ParsePriority(string(*u.Priority))
		if err != nil {
			return err
		}
		u.Priority = &p
	}

	err := s.withStore(ctx, "update task", func(st Store) error {
		return st.UpdateFields(ctx, id, u)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, notify.NewEvent(notify.TypeUpdated, id, updatedFields(u)...))
	return nil
}

// withStore opens a store, runs fn and closes the store on every path.
// Storage failures are logged and wrapped in ErrStorage; not-found and
// validation errors pass through unchanged.
func (s *Service) withStore(ctx context.Context, op string, fn func(Store) error) error {
	st, err := s.open()
	if err != nil {
		s.logger.Error(op+": open store failed", "err", err)
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			s.logger.Warn(op+": close store failed", "err", cerr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	err = fn(st)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidSortField),
		errors.Is(err, ErrInvalidColumn),
		errors.Is(err, ErrEmptyCriteria):
		s.logger.Debug(op+" rejected", "err", err)
		return err
	default:
		s.logger.Warn(op+" failed", "err", err)
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
}

func (s *Service) publish(ctx context.Context, ev *notify.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish task event", "type", ev.Type, "task_id", ev.TaskID, "err", err)
	}
}

func updatedFields(u Update) []string {
	set := updateSet(u)
	fields := make([]string, 0, len(set))
	for col := range set {
		fields = append(fields, col)
	}
	sort.Strings(fields)
	return fields
}
