package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is a closable, health-checked key-value store.
type Store interface {
	ports.KeyValueStore
	ports.HealthChecker
	io.Closer
}

// Options selects and configures a driver.
type Options struct {
	Driver string
	Path   string
	Logger *slog.Logger
}

// Open creates the store for the configured driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite:
		return NewSQLiteStore(ctx, SQLiteConfig{Path: opts.Path, Logger: opts.Logger})
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
