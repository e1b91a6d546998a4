package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/storage"
)

// CreateTableSQL returns a guarded CREATE TABLE for the users table. JSON
// columns are NVARCHAR(MAX).
func CreateTableSQL(table string) string {
	if table == "" {
		table = DefaultTable
	}
	literal := strings.ReplaceAll(table, "'", "''")
	return fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
	id BIGINT IDENTITY(1,1) PRIMARY KEY,
	name NVARCHAR(MAX) NOT NULL,
	age INT NOT NULL,
	address NVARCHAR(MAX),
	additional_info NVARCHAR(MAX),
	row_hash BIGINT,
	created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
)`, literal, msFQN(table))
}

// EnsureTable creates the users table if missing.
func EnsureTable(ctx context.Context, repo storage.Repository, table string) error {
	if err := repo.Exec(ctx, CreateTableSQL(table)); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
