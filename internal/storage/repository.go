// Package storage persists flattened tables to a pluggable backend.
//
// Backends register themselves from init() under a kind string ("sqlite",
// "postgres", "mssql", "dynamodb"); import storage/all to link every one.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
//
// Edge cases:
//   - Kind must match a registered backend.
//   - DSN is passed through to the backend; for dynamodb it is the AWS region
//     (empty means the SDK default chain).
type Config struct {
	Kind string
	DSN  string
}

// Repository is the minimal write surface the commands need. Each backend
// implements idempotent inserts its own way (SQLite OR IGNORE, Postgres
// ON CONFLICT, SQL Server NOT EXISTS, DynamoDB keyed puts).
type Repository interface {
	// Close releases backend resources. Call once.
	Close()

	// EnsureTables creates missing tables. It is safe to call on every run.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// InsertRows writes rows aligned with columns. When dedupeColumns is set,
	// rows whose key already exists (in the table or earlier in the batch)
	// are skipped. It returns the number of rows written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error)
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind.
//
// Panics if kind is empty, f is nil, or kind is already registered.
func Register(kind string, f Factory) {
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

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backends in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
