// Package storage defines the backend-agnostic repository interface
// typed tables are written through, plus the backend factory registry.
// Backends live in subpackages and register themselves in init().
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a repository.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the backend-agnostic interface the ingestion pipeline
// writes through.
//
// IMPORTANT: This interface is intentionally minimal and focused on
// the operations the ingestion engine needs. Each backend implements
// these semantics in its own idiomatic way (Postgres DDL types, SQLite
// pragmas, etc).
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTable creates or replaces the destination table so its
	// columns match the spec. Replace semantics: a previous load of the
	// same table is dropped, matching re-runs of the same report file.
	EnsureTable(ctx context.Context, spec TableSpec) error

	// InsertRows bulk-inserts row-major data into the table. Returns
	// the number of rows written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// CreateIndexes creates the heuristic indexes for the spec's
	// candidate columns. Index failures are backend-logged, not fatal.
	CreateIndexes(ctx context.Context, spec TableSpec) error

	// Finalize runs end-of-load maintenance (statistics, optimize).
	Finalize(ctx context.Context) error
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast
//     and avoid ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing storage.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
