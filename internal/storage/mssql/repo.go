// Package mssql implements a Microsoft SQL Server repository. Bulk inserts go
// through the go-mssqldb bulk copy API inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/storage"
	"github.com/Saujanya0910/csv-to-json/pkg/records"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// DefaultTable is used when no table is configured.
const DefaultTable = "dbo.users"

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

func (c Config) table() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens and pings the database and returns
// a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// InsertUsersInBulk bulk-copies every user into the table in one
// transaction.
func (r *Repository) InsertUsersInBulk(ctx context.Context, users []domain.User) (int64, error) {
	if len(users) == 0 {
		return 0, fmt.Errorf("bulk insert: %w", storage.ErrEmptyBatch)
	}
	rows, err := storage.EncodeUsers(users)
	if err != nil {
		return 0, fmt.Errorf("bulk insert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("bulk insert: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.table(), mssql.BulkOptions{}, storage.Columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk insert: prepare: %w", err)
	}
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Args()...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk insert: row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk insert: finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk insert: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("bulk insert: commit: %w", err)
	}
	return n, nil
}

// InsertUser inserts one user.
func (r *Repository) InsertUser(ctx context.Context, name string, age int, address domain.Address, additionalInfo records.Record) error {
	u, err := storage.SingleUser(name, age, address, additionalInfo)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	row, err := storage.EncodeUser(u)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, insertSQL(r.cfg.table()), row.Args()...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetAllUsers returns the name and age of every row in insertion order.
func (r *Repository) GetAllUsers(ctx context.Context) ([]domain.UserAge, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT name, age FROM %s ORDER BY id", msFQN(r.cfg.table())))
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer rows.Close()

	var out []domain.UserAge
	for rows.Next() {
		var u domain.UserAge
		if err := rows.Scan(&u.Name, &u.Age); err != nil {
			return nil, fmt.Errorf("fetch users: scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	return out, nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// insertSQL renders a single-row INSERT with @pN parameters.
func insertSQL(table string) string {
	params := make([]string, len(storage.Columns))
	for i := range params {
		params[i] = fmt.Sprintf("@p%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		msFQN(table),
		strings.Join(mapIdent(storage.Columns), ", "),
		strings.Join(params, ", "),
	)
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.users" to
// "[dbo].[users]".
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their bracket-quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
