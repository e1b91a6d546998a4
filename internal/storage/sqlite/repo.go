// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. Bulk inserts run a prepared
// INSERT per row inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/storage"
	"github.com/Saujanya0910/csv-to-json/pkg/records"

	_ "modernc.org/sqlite"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens and pings the database and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: SQLite allows a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

func (r *Repository) insertSQL() string {
	placeholders := make([]string, len(storage.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sqliteFQN(r.cfg.table()),
		strings.Join(mapIdent(storage.Columns), ", "),
		strings.Join(placeholders, ", "),
	)
}

// InsertUsersInBulk inserts every user inside a single transaction.
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
	stmt, err := tx.PrepareContext(ctx, r.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("bulk insert: prepare: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Args()...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("bulk insert: row %d: %w", i, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("bulk insert: commit: %w", err)
	}
	return inserted, nil
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
	if _, err := r.db.ExecContext(ctx, r.insertSQL(), row.Args()...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetAllUsers returns the name and age of every row in insertion order.
func (r *Repository) GetAllUsers(ctx context.Context) ([]domain.UserAge, error) {
	q := fmt.Sprintf("SELECT name, age FROM %s ORDER BY id", sqliteFQN(r.cfg.table()))
	rows, err := r.db.QueryContext(ctx, q)
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

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// sqliteIdent quotes one identifier segment.
func sqliteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// sqliteFQN quotes a possibly schema-qualified name like "main.users".
func sqliteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = sqliteIdent(p)
	}
	return strings.Join(parts, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = sqliteIdent(c)
	}
	return out
}
