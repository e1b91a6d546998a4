package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLBootstrapper creates the users table for one backend through repo.Exec.
// table is the configured table name, possibly empty for the backend default.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the bootstrapper for kind. Backends call
// it from init.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureSchema creates the users table for cfg.Kind if it does not exist.
func EnsureSchema(ctx context.Context, cfg Config, repo Repository) error {
	ddlMu.RLock()
	fn, ok := ddlFns[cfg.Kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", cfg.Kind)
	}
	if err := fn(ctx, repo, cfg.Table); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
