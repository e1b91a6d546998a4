package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/storage"
)

// CreateTableSQL returns the DDL for the users table, creating its schema
// first when the name is qualified.
func CreateTableSQL(table string) []string {
	if table == "" {
		table = DefaultTable
	}
	var stmts []string
	if i := strings.LastIndex(table, "."); i > 0 {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgIdent(table[:i]))
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	address JSONB,
	additional_info JSONB,
	row_hash BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, pgFQN(table)))
	return stmts
}

// EnsureTable applies CreateTableSQL through repo.Exec.
func EnsureTable(ctx context.Context, repo storage.Repository, table string) error {
	for _, stmt := range CreateTableSQL(table) {
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
	}
	return nil
}
