package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config configures a SQLite database.
type Config struct {
	Path        string        `env:"EMBEDDED_SQLITE_PATH" envDefault:"embedded.db"`
	BusyTimeout time.Duration `env:"EMBEDDED_SQLITE_BUSY_TIMEOUT" envDefault:"5s"`
	JournalMode string        `env:"EMBEDDED_SQLITE_JOURNAL_MODE" envDefault:"WAL"`
}

// ParseConfig loads configuration from environment variables.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

var journalModes = map[string]bool{
	"DELETE":   true,
	"TRUNCATE": true,
	"PERSIST":  true,
	"MEMORY":   true,
	"WAL":      true,
	"OFF":      true,
}

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

var memoryDBs atomic.Int64

// DSN renders the config as a modernc.org/sqlite data source name.
// Times are written in SQLite's own text format so they compare equal
// to bound time arguments.
//
// MemoryPath becomes a uniquely named shared-cache URI so every pooled
// connection of one DB sees the same database. Each call names a new one.
func (c Config) DSN() (string, error) {
	path := strings.TrimSpace(c.Path)
	if path == "" {
		return "", fmt.Errorf("storage path is required")
	}
	mode := strings.ToUpper(strings.TrimSpace(c.JournalMode))
	if mode == "" {
		mode = "WAL"
	}
	if !journalModes[mode] {
		return "", fmt.Errorf("unsupported journal mode %q", c.JournalMode)
	}
	if c.BusyTimeout < 0 {
		return "", fmt.Errorf("busy timeout must not be negative")
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", mode))
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_time_format", "sqlite")

	if path == MemoryPath {
		q.Set("mode", "memory")
		q.Set("cache", "shared")
		return fmt.Sprintf("file:embedded-%d?%s", memoryDBs.Add(1), q.Encode()), nil
	}
	return filepath.Clean(path) + "?" + q.Encode(), nil
}
