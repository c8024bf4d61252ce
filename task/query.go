package task

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL CHECK (length(trim(title)) > 0),
	description  TEXT,
	priority     TEXT NOT NULL CHECK (priority IN ('Low', 'Medium', 'High')),
	deadline     DATETIME,
	status       TEXT NOT NULL DEFAULT 'Open' CHECK (status IN ('Open', 'Completed')),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	tags         TEXT,
	CHECK ((status = 'Completed') = (completed_at IS NOT NULL))
);
`

// columns is the fixed select order. scanTask reads rows positionally in
// exactly this order; change both together.
var columns = []string{
	"id", "title", "description", "priority", "deadline",
	"status", "created_at", "completed_at", "tags",
}

var selectAll = "SELECT " + strings.Join(columns, ", ") + " FROM tasks"

// searchable is the column allow-list for Search.
var searchable = func() map[string]bool {
	m := make(map[string]bool, len(columns))
	for _, c := range columns {
		m[c] = true
	}
	return m
}()

// timeColumns are searched by instant, to the second, rather than by text.
var timeColumns = map[string]bool{"deadline": true, "created_at": true, "completed_at": true}

// sqliteTimeLayout is the UTC text form SQLite's datetime() reads and writes.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// likeEscaper makes a search word match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// condition is a single SQL predicate with its bound arguments.
type condition struct {
	sql  string
	args []any
}

// order is a validated ORDER BY column and direction.
type order struct {
	column string
	desc   bool
}

// listPlan resolves ListOptions into a filter and an optional ordering.
// The sort column is checked against the allow-list before it is ever used as
// SQL text.
func listPlan(opts ListOptions) ([]condition, *order, error) {
	if !opts.SortField.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidSortField, opts.SortField)
	}
	var conds []condition
	if opts.Priority != "" && opts.Priority != PriorityAll {
		conds = append(conds, condition{sql: "priority = ?", args: []any{string(opts.Priority)}})
	}
	if opts.SortField == SortNone {
		return conds, nil, nil
	}
	return conds, &order{
		column: string(opts.SortField),
		desc:   opts.Direction != SortAscending,
	}, nil
}

// searchPlan turns criteria into AND-combined predicates. Columns are visited in
// sorted order so the generated SQL is stable.
func searchPlan(c Criteria) ([]condition, error) {
	cols := make([]string, 0, len(c))
	for col := range c {
		if !searchable[col] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var conds []condition
	for _, col := range cols {
		value := c[col]
		if timeColumns[col] {
			at, err := ParseDeadline(value)
			if err != nil {
				return nil, fmt.Errorf("search %s: %w", col, err)
			}
			if at == nil {
				return nil, fmt.Errorf("%w: search %s: empty time", ErrInvalidInput, col)
			}
			conds = append(conds, condition{
				sql:  "datetime(" + col + ") = datetime(?)",
				args: []any{at.UTC().Format(sqliteTimeLayout)},
			})
			continue
		}
		if col == "title" {
			for _, word := range strings.Fields(value) {
				conds = append(conds, condition{
					sql:  `title LIKE ? ESCAPE '\'`,
					args: []any{"%" + likeEscaper.Replace(word) + "%"},
				})
			}
			continue
		}
		conds = append(conds, condition{sql: col + " = ?", args: []any{value}})
	}
	if len(conds) == 0 {
		return nil, ErrEmptyCriteria
	}
	return conds, nil
}

// updateSet maps the non-nil fields of u to column assignments.
func updateSet(u Update) map[string]any {
	set := make(map[string]any)
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Priority != nil {
		set["priority"] = string(*u.Priority)
	}
	if u.Deadline != nil {
		set["deadline"] = u.Deadline.UTC()
	}
	if u.Tags != nil {
		set["tags"] = nullString(*u.Tags)
	}
	return set
}

// buildSelect renders a SELECT over tasks with the given predicates and
// ordering.
func buildSelect(conds []condition, ord *order) (string, []any) {
	q := strings.Builder{}
	q.WriteString(selectAll)
	var args []any
	for i, c := range conds {
		if i == 0 {
			q.WriteString(" WHERE ")
		} else {
			q.WriteString(" AND ")
		}
		q.WriteString(c.sql)
		args = append(args, c.args...)
	}
	if ord != nil {
		dir := "ASC"
		if ord.desc {
			dir = "DESC"
		}
		q.WriteString(fmt.Sprintf(" ORDER BY %s %s, id ASC", ord.column, dir))
	}
	return q.String(), args
}

// buildUpdate renders an UPDATE for the given assignments. Column names come
// from updateSet and are emitted in a fixed order.
func buildUpdate(id int64, set map[string]any) (string, []any) {
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	assignments := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		assignments = append(assignments, col+" = ?")
		args = append(args, set[col])
	}
	args = append(args, id)
	return "UPDATE tasks SET " + strings.Join(assignments, ", ") + " WHERE id = ?", args
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
