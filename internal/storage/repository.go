// Package storage defines the persistence contract for normalized users and a
// registry of backend factories. Backends (postgres, sqlite, mssql) register
// themselves from init; callers open one with New and stay backend-agnostic.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/pkg/records"
)

// Column names shared by every backend's users table.
var Columns = []string{"name", "age", "address", "additional_info", "row_hash"}

var (
	// ErrEmptyBatch is returned by InsertUsersInBulk for an empty slice.
	ErrEmptyBatch = errors.New("users must be a non-empty slice")
	// ErrEmptyName is returned by InsertUser when name is blank.
	ErrEmptyName = errors.New("name is required")
)

// Repository persists users. Implementations are safe for concurrent use.
type Repository interface {
	// InsertUsersInBulk writes all users in one transaction and returns the
	// number of rows inserted. It never partially succeeds.
	InsertUsersInBulk(ctx context.Context, users []domain.User) (int64, error)
	// InsertUser writes a single row.
	InsertUser(ctx context.Context, name string, age int, address domain.Address, additionalInfo records.Record) error
	// GetAllUsers returns the name and age of every stored row.
	GetAllUsers(ctx context.Context) ([]domain.UserAge, error)
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// Exec runs a raw statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases the underlying connection pool.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string // "postgres", "sqlite", "mssql"
	DSN   string
	Table string // empty selects the backend default
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
