// Package config provides configuration for the loam CLI.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Snapshot backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds CLI configuration.
type Config struct {
	// DB is the path of the SQLite event database.
	DB string
	// Graph is the graph id commands operate on.
	Graph string
	// LogLevel is the minimum level written to stderr.
	LogLevel slog.Level
	// SnapshotBackend selects where snapshots live: "sqlite" keeps them in
	// DB, "badger" in a Badger directory.
	SnapshotBackend string
	// BadgerDir is the Badger directory. Defaults to DB with a .snapshots
	// suffix.
	BadgerDir string
	// CheckpointEvery checkpoints after this many events. Zero disables
	// automatic checkpoints.
	CheckpointEvery int
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	cfg := &Config{
		DB:              getEnv("LOAM_DB", "loam.db"),
		Graph:           getEnv("LOAM_GRAPH", "default"),
		LogLevel:        getEnvLevel("LOAM_LOG_LEVEL", slog.LevelWarn),
		SnapshotBackend: strings.ToLower(getEnv("LOAM_SNAPSHOT_BACKEND", BackendSQLite)),
		BadgerDir:       getEnv("LOAM_BADGER_DIR", ""),
		CheckpointEvery: getEnvInt("LOAM_CHECKPOINT_EVERY", 1000),
	}
	return cfg
}

// FromArgs creates a Config from explicit values, with env fallbacks.
func FromArgs(db, graph string) *Config {
	cfg := FromEnv()
	if db != "" {
		cfg.DB = db
	}
	if graph != "" {
		cfg.Graph = graph
	}
	return cfg
}

// SnapshotDir returns the Badger directory to use.
func (c *Config) SnapshotDir() string {
	if c.BadgerDir != "" {
		return c.BadgerDir
	}
	return c.DB + ".snapshots"
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Graph == "" {
		return fmt.Errorf("graph id is required")
	}
	switch c.SnapshotBackend {
	case BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("unknown snapshot backend %q (want %s or %s)", c.SnapshotBackend, BackendSQLite, BackendBadger)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint interval must be non-negative, got %d", c.CheckpointEvery)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvLevel accepts slog level names (debug, info, warn, error) with an
// optional offset such as "info+2".
func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	if val := os.Getenv(key); val != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(val)); err == nil {
			return level
		}
	}
	return defaultVal
}
