package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Compile-time check that SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists tasks in a SQLite database through database/sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tasks table exists. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteDSN asks the driver to write time values in the layout SQLite's own
// date functions and the cgo driver understand.
func sqliteDSN(dbPath string) string {
	return "file:" + dbPath + "?_time_format=sqlite"
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Insert persists a new open task and returns the id SQLite assigned to it.
func (s *SQLiteStore) Insert(ctx context.Context, t NewTask) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, priority, deadline, status, created_at, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, string(t.Priority), nullTime(t.Deadline),
		string(StatusOpen), time.Now().UTC(), nullString(t.Tags),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task: last id: %w", err)
	}
	return id, nil
}

// Get retrieves a task by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, selectAll+" WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// Query returns tasks filtered and ordered by opts.
func (s *SQLiteStore) Query(ctx context.Context, opts ListOptions) ([]*Task, error) {
	conds, ord, err := listPlan(opts)
	if err != nil {
		return nil, err
	}
	q, args := buildSelect(conds, ord)
	return s.list(ctx, q, args)
}

// Search returns tasks matching every criterion.
func (s *SQLiteStore) Search(ctx context.Context, c Criteria) ([]*Task, error) {
	conds, err := searchPlan(c)
	if err != nil {
		return nil, err
	}
	q, args := buildSelect(conds, nil)
	return s.list(ctx, q, args)
}

// UpdateFields writes the non-nil fields of u. An empty update succeeds
// without touching the database.
func (s *SQLiteStore) UpdateFields(ctx context.Context, id int64, u Update) error {
	set := updateSet(u)
	if len(set) == 0 {
		return nil
	}
	q, args := buildUpdate(id, set)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return checkAffected(res, id)
}

// Complete sets the task's status to Completed and records at as its
// completion time. Completing an already completed task rewrites the same
// fields.
func (s *SQLiteStore) Complete(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?",
		string(StatusCompleted), at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) list(ctx context.Context, q string, args []any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func checkAffected(res sql.Result, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask maps one row in columns order onto a Task.
func scanTask(s scanner) (*Task, error) {
	var t Task
	var priority, status string
	var description, tags sql.NullString
	var deadline, completedAt sql.NullTime

	err := s.Scan(
		&t.ID, &t.Title, &description, &priority, &deadline,
		&status, &t.CreatedAt, &completedAt, &tags,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.Tags = tags.String
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}
