// Command taskdesk is the taskdesk CLI: a single-user task list kept in a
// local SQLite file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GoCodeAlone/taskdesk/config"
	"github.com/GoCodeAlone/taskdesk/internal/version"
	"github.com/GoCodeAlone/taskdesk/notify"
	"github.com/GoCodeAlone/taskdesk/task"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		dotenv     = flag.String("env-file", ".env", "dotenv file with TASKDESK_* overrides")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	cmd, rest := args[0], args[1:]

	if cmd == "version" {
		cmdVersion(os.Stdout)
		return
	}

	cfg, err := loadConfig(*configPath, *dotenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(os.Stderr, cfg)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("failed to initialize task database", "path", cfg.DBPath(), "err", err)
		os.Exit(1)
	}

	switch cmd {
	case "add":
		err = a.cmdAdd(ctx, rest)
	case "list":
		err = a.cmdList(ctx, rest)
	case "find":
		err = a.cmdFind(ctx, rest)
	case "show":
		err = a.cmdShow(ctx, rest)
	case "done":
		err = a.cmdDone(ctx, rest)
	case "edit":
		err = a.cmdEdit(ctx, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskdesk - personal task list

Usage:
  taskdesk [flags] <command> [args]

Flags:
  --config   <file>  YAML config file
  --env-file <file>  dotenv file with TASKDESK_* overrides (default: .env)

Commands:
  version                          print version
  add <title> [flags]              create a task
        --desc --priority --deadline --tags
  list [flags]                     list tasks
        --sort title|status|priority|deadline  --order ascending|descending
        --priority Low|Medium|High|All
  find <column=value>...           search tasks (title matches every word)
  show <id>                        print one task
  done <id> [--at <time>]          mark a task completed
  edit <id> [flags]                change fields of a task
        --title --desc --priority --deadline --tags
`)
}

func cmdVersion(w io.Writer) {
	fmt.Fprintln(w, version.String())
}

// loadConfig builds the effective config: defaults, then the YAML file when
// given, then environment overrides.
func loadConfig(path, dotenv string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(dotenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// app holds what the commands share.
type app struct {
	svc *task.Service
	bus notify.Bus
	out io.Writer
}

// newApp wires the store backend, the change bus and the service, and makes
// sure the database exists.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	open, err := task.NewOpener(cfg.Backend, cfg.DBPath(), cfg.SlogLevel() <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}

	bus := notify.NewInMemoryBus()
	bus.Subscribe(notify.TypeAny, func(_ context.Context, ev *notify.Event) error {
		logger.Debug("task changed", "event", ev.Type, "task_id", ev.TaskID, "fields", ev.Fields)
		return nil
	})

	svc := task.NewService(open, logger, bus)
	if err := svc.Init(ctx); err != nil {
		return nil, err
	}
	return &app{svc: svc, bus: bus, out: out}, nil
}
