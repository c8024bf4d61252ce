package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Compile-time check that GormStore satisfies Store.
var _ Store = (*GormStore)(nil)

// taskRecord is the GORM row model for the tasks table.
type taskRecord struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string         `gorm:"column:title;not null"`
	Description sql.NullString `gorm:"column:description"`
	Priority    string         `gorm:"column:priority;not null"`
	Deadline    sql.NullTime   `gorm:"column:deadline"`
	Status      string         `gorm:"column:status;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime:false"`
	CompletedAt sql.NullTime   `gorm:"column:completed_at"`
	Tags        sql.NullString `gorm:"column:tags"`
}

// TableName returns the table name for taskRecord.
func (taskRecord) TableName() string {
	return "tasks"
}

func (r *taskRecord) toTask() *Task {
	t := &Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Priority:    Priority(r.Priority),
		Status:      Status(r.Status),
		CreatedAt:   r.CreatedAt,
		Tags:        r.Tags.String,
	}
	if r.Deadline.Valid {
		d := r.Deadline.Time
		t.Deadline = &d
	}
	if r.CompletedAt.Valid {
		c := r.CompletedAt.Time
		t.CompletedAt = &c
	}
	return t
}

// GormStore persists tasks through GORM on the cgo SQLite driver. It shares
// the table definition with SQLiteStore so either backend can open a file
// written by the other.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (or creates) a SQLite database at dbPath and ensures the
// tasks table exists. When debug is set, GORM logs every statement.
func NewGormStore(dbPath string, debug bool) (*GormStore, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.Exec(schema).Error; err != nil {
		closeGorm(db)
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *GormStore) Close() error {
	return closeGorm(s.db)
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Insert persists a new open task and returns its id.
func (s *GormStore) Insert(ctx context.Context, t NewTask) (int64, error) {
	rec := taskRecord{
		Title:       t.Title,
		Description: sql.NullString{String: t.Description, Valid: true},
		Priority:    string(t.Priority),
		Status:      string(StatusOpen),
		CreatedAt:   time.Now().UTC(),
		Tags:        sql.NullString{String: t.Tags, Valid: t.Tags != ""},
	}
	if t.Deadline != nil {
		rec.Deadline = sql.NullTime{Time: t.Deadline.UTC(), Valid: true}
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return rec.ID, nil
}

// Get retrieves a task by id.
func (s *GormStore) Get(ctx context.Context, id int64) (*Task, error) {
	var rec taskRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return rec.toTask(), nil
}

// Query returns tasks filtered and ordered by opts.
func (s *GormStore) Query(ctx context.Context, opts ListOptions) ([]*Task, error) {
	conds, ord, err := listPlan(opts)
	if err != nil {
		return nil, err
	}
	tx := s.where(ctx, conds)
	if ord != nil {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: ord.column}, Desc: ord.desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return s.find(tx)
}

// Search returns tasks matching every criterion.
func (s *GormStore) Search(ctx context.Context, c Criteria) ([]*Task, error) {
	conds, err := searchPlan(c)
	if err != nil {
		return nil, err
	}
	return s.find(s.where(ctx, conds))
}

// UpdateFields writes the non-nil fields of u. An empty update succeeds
// without touching the database.
func (s *GormStore) UpdateFields(ctx context.Context, id int64, u Update) error {
	set := updateSet(u)
	if len(set) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", id).Updates(set)
	if err := result.Error; err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Complete sets the task's status to Completed and records at as its
// completion time.
func (s *GormStore) Complete(ctx context.Context, id int64, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":       string(StatusCompleted),
			"completed_at": at.UTC(),
		})
	if err := result.Error; err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *GormStore) where(ctx context.Context, conds []condition) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&taskRecord{})
	for _, c := range conds {
		tx = tx.Where(c.sql, c.args...)
	}
	return tx
}

func (s *GormStore) find(tx *gorm.DB) ([]*Task, error) {
	var recs []taskRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]*Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toTask())
	}
	return tasks, nil
}
