// Package config defines the taskdesk application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDatabase is the database file name used when none is configured.
const DefaultDatabase = "taskdesk.sqlite"

// Config is the top-level taskdesk configuration.
type Config struct {
	DataDir   string `json:"data_dir" yaml:"data_dir"`
	Database  string `json:"database" yaml:"database"` // file name inside DataDir, or an absolute path
	Backend   string `json:"backend" yaml:"backend"`   // "sql" or "gorm"
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "text" or "json"
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   ".",
		Database:  DefaultDatabase,
		Backend:   "sql",
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// envVars maps environment variables to the fields they override.
var envVars = []struct {
	name  string
	field func(*Config) *string
}{
	{"TASKDESK_DATA_DIR", func(c *Config) *string { return &c.DataDir }},
	{"TASKDESK_DATABASE", func(c *Config) *string { return &c.Database }},
	{"TASKDESK_BACKEND", func(c *Config) *string { return &c.Backend }},
	{"TASKDESK_LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }},
	{"TASKDESK_LOG_FORMAT", func(c *Config) *string { return &c.LogFormat }},
}

// ApplyEnv loads dotenv (if present; a missing file is not an error) and then
// overrides fields from TASKDESK_* environment variables. Variables already
// set in the environment win over the file.
func (c *Config) ApplyEnv(dotenv string) error {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	for _, v := range envVars {
		if val := strings.TrimSpace(os.Getenv(v.name)); val != "" {
			*v.field(c) = val
		}
	}
	return nil
}

// Validate checks field values and normalizes their case.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("database cannot be empty")
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "sql", "gorm":
	default:
		return fmt.Errorf("invalid backend %q: must be sql or gorm", c.Backend)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// DBPath returns the database file location.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.DataDir, c.Database)
}

// SlogLevel returns the configured level, defaulting to warn when unset.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
}
