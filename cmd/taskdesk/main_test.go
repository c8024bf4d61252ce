package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoCodeAlone/taskdesk/config"
	"github.com/GoCodeAlone/taskdesk/task"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), cfg, logger, &out)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a, &out
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)

	run := func(name string, fn func(context.Context, []string) error, args ...string) string {
		t.Helper()
		out.Reset()
		if err := fn(ctx, args); err != nil {
			t.Fatalf("%s %v: %v", name, args, err)
		}
		return out.String()
	}

	if got := run("add", a.cmdAdd, "buy", "milk", "--priority", "high", "--tags", "home"); got != "created task 1\n" {
		t.Errorf("add output = %q", got)
	}
	run("add", a.cmdAdd, "--deadline", "2024-06-01", "write report")

	got := run("list", a.cmdList, "--sort", "title", "--order", "ascending")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 4 {
		t.Fatalf("list lines = %d:\n%s", len(lines), got)
	}
	if !strings.Contains(lines[2], "buy milk") || !strings.Contains(lines[3], "write report") {
		t.Errorf("list order wrong:\n%s", got)
	}

	if got := run("list", a.cmdList, "--priority", "Low"); got != "no tasks\n" {
		t.Errorf("filtered list = %q", got)
	}

	got = run("find", a.cmdFind, "title=milk")
	if !strings.Contains(got, "buy milk") || strings.Contains(got, "write report") {
		t.Errorf("find output:\n%s", got)
	}

	run("done", a.cmdDone, "1", "--at", "2024-05-01T12:00:00Z")
	if got := run("edit", a.cmdEdit, "2", "--title", "write final report", "--tags", "work"); got != "task 2 updated (tags, title)\n" {
		t.Errorf("edit output = %q", got)
	}

	got = run("show", a.cmdShow, "1")
	if !strings.Contains(got, "status:      Completed") || !strings.Contains(got, "priority:    High") {
		t.Errorf("show 1:\n%s", got)
	}
	got = run("show", a.cmdShow, "2")
	if !strings.Contains(got, "title:       write final report") || !strings.Contains(got, "status:      Open") {
		t.Errorf("show 2:\n%s", got)
	}

	got = run("find", a.cmdFind, "deadline=2024-06-01")
	if !strings.Contains(got, "write final report") || strings.Contains(got, "buy milk") {
		t.Errorf("find by deadline:\n%s", got)
	}
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)

	if err := a.cmdShow(ctx, []string{"99"}); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("show missing: err = %v, want ErrNotFound", err)
	}
	if err := a.cmdShow(ctx, []string{"abc"}); !errors.Is(err, task.ErrInvalidInput) {
		t.Errorf("show bad id: err = %v, want ErrInvalidInput", err)
	}
	if err := a.cmdList(ctx, []string{"--sort", "created_at"}); !errors.Is(err, task.ErrInvalidSortField) {
		t.Errorf("list bad sort: err = %v, want ErrInvalidSortField", err)
	}
	if err := a.cmdAdd(ctx, []string{"x", "--priority", "urgent"}); !errors.Is(err, task.ErrInvalidInput) {
		t.Errorf("add bad priority: err = %v, want ErrInvalidInput", err)
	}
	if err := a.cmdFind(ctx, []string{"owner=me"}); !errors.Is(err, task.ErrInvalidColumn) {
		t.Errorf("find bad column: err = %v, want ErrInvalidColumn", err)
	}
	if err := a.cmdEdit(ctx, []string{"1"}); err == nil {
		t.Error("edit without flags: expected error")
	}
	if err := a.cmdDone(ctx, []string{"5"}); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("done missing: err = %v, want ErrNotFound", err)
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := parseCriteria([]string{"Title=buy milk", "status=Open", "tags=a=b"})
	if err != nil {
		t.Fatalf("parseCriteria: %v", err)
	}
	want := task.Criteria{"title": "buy milk", "status": "Open", "tags": "a=b"}
	if len(c) != len(want) {
		t.Fatalf("criteria = %v, want %v", c, want)
	}
	for k, v := range want {
		if c[k] != v {
			t.Errorf("criteria[%q] = %q, want %q", k, c[k], v)
		}
	}

	for _, bad := range [][]string{nil, {"title"}, {"=x"}} {
		if _, err := parseCriteria(bad); err == nil {
			t.Errorf("parseCriteria(%q): expected error", bad)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKDESK_BACKEND", "gorm")
	t.Setenv("TASKDESK_DATA_DIR", dir)

	cfg, err := loadConfig("", filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend != "gorm" || cfg.DBPath() != filepath.Join(dir, config.DefaultDatabase) {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("TASKDESK_BACKEND", "mysql")
	if _, err := loadConfig("", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("héllo wörld", 5); got != "héll…" {
		t.Errorf("truncate = %q", got)
	}
}
