package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// Config selects and configures a backend.
type Config struct {
	// Driver is empty or "auto" to detect from URL.
	Driver Driver
	// URL is the PostgreSQL connection string.
	URL string
	// SQLitePath defaults to DefaultSQLitePath.
	SQLitePath string
	// MaxConns caps the PostgreSQL pool; 0 keeps the pgx default.
	MaxConns int
}

// OpenFunc opens a connection for one driver.
type OpenFunc func(ctx context.Context, cfg Config) (Connection, error)

var (
	driversMu sync.RWMutex
	drivers   = map[Driver]OpenFunc{}
)

// Register makes a driver available to NewConnection. Driver packages call
// it from init, so callers link them with a blank import.
func Register(d Driver, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[d] = open
}

// NewConnection opens a connection with the configured or detected driver.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	d := cfg.Driver
	if d == "" || d == "auto" {
		d = DetectDriver(cfg.URL)
	}

	driversMu.RLock()
	open, ok := drivers[d]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotRegistered, d)
	}
	cfg.Driver = d
	return open(ctx, cfg)
}

// DefaultSQLitePath is ~/.autoplan/data.db, or ./.autoplan/data.db when the
// home directory is unknown.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".autoplan", "data.db")
}

// EnsureDirectory creates the parent directory of a SQLite file. In-memory
// and URI paths are left alone.
func EnsureDirectory(path string) error {
	if path == MemoryPath || strings.HasPrefix(path, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o750)
}
