package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskdesk/notify"
	"github.com/GoCodeAlone/taskdesk/task"
)

const timeLayout = "2006-01-02 15:04"

// --- add ---

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	desc := fs.String("desc", "", "description")
	priority := fs.String("priority", string(task.PriorityMedium), "Low, Medium or High")
	deadline := fs.String("deadline", "", "deadline, e.g. 2024-06-01 or 2024-06-01T17:00")
	tags := fs.String("tags", "", "comma or space separated tags")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return fmt.Errorf("usage: taskdesk add <title> [flags]")
	}

	dl, err := task.ParseDeadline(*deadline)
	if err != nil {
		return err
	}
	id, err := a.svc.CreateTask(ctx, task.NewTask{
		Title:       strings.Join(pos, " "),
		Description: *desc,
		Priority:    task.Priority(*priority),
		Deadline:    dl,
		Tags:        *tags,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created task %d\n", id)
	return nil
}

// --- list ---

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	sortBy := fs.String("sort", "", "title, status, priority or deadline")
	order := fs.String("order", string(task.SortDescending), "ascending or descending")
	priority := fs.String("priority", string(task.PriorityAll), "Low, Medium, High or All")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	field, err := task.ParseSortField(*sortBy)
	if err != nil {
		return err
	}
	p, err := task.ParsePriorityFilter(*priority)
	if err != nil {
		return err
	}
	tasks, err := a.svc.ListTasks(ctx, task.ListOptions{
		SortField: field,
		Direction: task.SortDirection(strings.ToLower(*order)),
		Priority:  p,
	})
	if err != nil {
		return err
	}
	printTable(a.out, tasks)
	return nil
}

// --- find ---

func (a *app) cmdFind(ctx context.Context, args []string) error {
	c, err := parseCriteria(args)
	if err != nil {
		return err
	}
	tasks, err := a.svc.FindTasks(ctx, c)
	if err != nil {
		return err
	}
	printTable(a.out, tasks)
	return nil
}

// parseCriteria turns column=value arguments into search criteria. A repeated
// column keeps the last value.
func parseCriteria(args []string) (task.Criteria, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: taskdesk find <column=value>...")
	}
	c := make(task.Criteria, len(args))
	for _, arg := range args {
		col, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("bad criterion %q: want column=value", arg)
		}
		c[strings.ToLower(strings.TrimSpace(col))] = value
	}
	return c, nil
}

// --- show ---

func (a *app) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: taskdesk show <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	t, err := a.svc.GetTask(ctx, id)
	if err != nil {
		return err
	}
	printTask(a.out, t)
	return nil
}

// --- done ---

func (a *app) cmdDone(ctx context.Context, args []string) error {
	fs := newFlagSet("done")
	at := fs.String("at", "", "completion time (default: now)")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: taskdesk done <id> [--at <time>]")
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	completedAt, err := task.ParseDeadline(*at)
	if err != nil {
		return err
	}
	if err := a.svc.CompleteTask(ctx, id, completedAt); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "task %d completed\n", id)
	return nil
}

// --- edit ---

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit")
	title := fs.String("title", "", "new title")
	desc := fs.String("desc", "", "new description")
	priority := fs.String("priority", "", "Low, Medium or High")
	deadline := fs.String("deadline", "", "new deadline")
	tags := fs.String("tags", "", "new tags")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: taskdesk edit <id> [flags]")
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}

	// Only flags given on the command line are written.
	var u task.Update
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			u.Title = title
		case "desc":
			u.Description = desc
		case "priority":
			p := task.Priority(*priority)
			u.Priority = &p
		case "tags":
			u.Tags = tags
		}
	})
	if isFlagSet(fs, "deadline") {
		dl, err := task.ParseDeadline(*deadline)
		if err != nil {
			return err
		}
		if dl == nil {
			return fmt.Errorf("%w: deadline cannot be cleared", task.ErrInvalidInput)
		}
		u.Deadline = dl
	}
	if u.Empty() {
		return fmt.Errorf("nothing to change: pass at least one of --title --desc --priority --deadline --tags")
	}

	if err := a.svc.UpdateTask(ctx, id, u); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "task %d updated (%s)\n", id, a.lastChange(id))
	return nil
}

// lastChange lists the columns written by the most recent update of id.
func (a *app) lastChange(id int64) string {
	evs, err := a.bus.History(id, 1)
	if err != nil || len(evs) == 0 || evs[0].Type != notify.TypeUpdated {
		return "no change recorded"
	}
	return strings.Join(evs[0].Fields, ", ")
}

// --- helpers ---

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments and returns the positional ones in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad task id %q", task.ErrInvalidInput, s)
	}
	return id, nil
}

func printTable(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	fmt.Fprintf(w, "%-6s %-30s %-8s %-10s %-16s %-20s\n", "ID", "TITLE", "PRIORITY", "STATUS", "DEADLINE", "TAGS")
	fmt.Fprintln(w, strings.Repeat("-", 95))
	for _, t := range tasks {
		fmt.Fprintf(w, "%-6d %-30s %-8s %-10s %-16s %-20s\n",
			t.ID,
			truncate(t.Title, 30),
			t.Priority,
			t.Status,
			formatTime(t.Deadline),
			truncate(t.Tags, 20),
		)
	}
}

func printTask(w io.Writer, t *task.Task) {
	fmt.Fprintf(w, "id:          %d\n", t.ID)
	fmt.Fprintf(w, "title:       %s\n", t.Title)
	fmt.Fprintf(w, "description: %s\n", t.Description)
	fmt.Fprintf(w, "priority:    %s\n", t.Priority)
	fmt.Fprintf(w, "status:      %s\n", t.Status)
	fmt.Fprintf(w, "deadline:    %s\n", formatTime(t.Deadline))
	fmt.Fprintf(w, "created:     %s\n", t.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "completed:   %s\n", formatTime(t.CompletedAt))
	fmt.Fprintf(w, "tags:        %s\n", t.Tags)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
