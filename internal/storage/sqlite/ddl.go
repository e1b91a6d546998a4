package sqlite

import (
	"context"
	"fmt"

	"github.com/Saujanya0910/csv-to-json/internal/storage"
)

// CreateTableSQL returns the users table DDL. JSON columns are TEXT.
func CreateTableSQL(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	address TEXT,
	additional_info TEXT,
	row_hash INTEGER,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, sqliteFQN(table))
}

// EnsureTable creates the users table if missing.
func EnsureTable(ctx context.Context, repo storage.Repository, table string) error {
	return repo.Exec(ctx, CreateTableSQL(table))
}
