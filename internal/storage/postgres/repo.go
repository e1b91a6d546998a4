// Package postgres implements a Postgres repository using pgx v5. Bulk
// inserts are multi-row parameterized INSERTs run inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/storage"
	"github.com/Saujanya0910/csv-to-json/pkg/records"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is used when no table is configured.
const DefaultTable = "public.users"

// maxParams is the Postgres wire-protocol limit on bind parameters.
const maxParams = 65535

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // possibly schema-qualified, e.g. "public.users"
}

func (c Config) table() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository opens a pool, checks connectivity and returns a Close
// function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// InsertUsersInBulk inserts all users in one transaction, splitting them into
// as few statements as the bind-parameter limit allows.
func (r *Repository) InsertUsersInBulk(ctx context.Context, users []domain.User) (int64, error) {
	if len(users) == 0 {
		return 0, fmt.Errorf("bulk insert: %w", storage.ErrEmptyBatch)
	}
	rows, err := storage.EncodeUsers(users)
	if err != nil {
		return 0, fmt.Errorf("bulk insert: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk insert: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted int64
	for _, chunk := range chunkRows(rows, maxParams/len(storage.Columns)) {
		sql, args := buildInsert(r.cfg.table(), chunk)
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, fmt.Errorf("bulk insert: %w", describe(err))
		}
		inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
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
	sql, args := buildInsert(r.cfg.table(), []storage.Row{row})
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", describe(err))
	}
	return nil
}

// GetAllUsers returns the name and age of every row in insertion order.
func (r *Repository) GetAllUsers(ctx context.Context) ([]domain.UserAge, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT name, age FROM %s ORDER BY id", pgFQN(r.cfg.table())))
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.UserAge])
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", describe(err))
	}
	return users, nil
}

// Ping checks the pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// buildInsert renders a multi-row INSERT for rows with positional
// parameters. JSON columns are cast to jsonb.
func buildInsert(table string, rows []storage.Row) (string, []any) {
	ncol := len(storage.Columns)
	args := make([]any, 0, len(rows)*ncol)
	tuples := make([]string, len(rows))

	for i, row := range rows {
		base := i * ncol
		tuples[i] = fmt.Sprintf("($%d, $%d, $%d::jsonb, $%d::jsonb, $%d)",
			base+1, base+2, base+3, base+4, base+5)
		args = append(args, row.Args()...)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		pgFQN(table),
		strings.Join(mapIdent(storage.Columns), ", "),
		strings.Join(tuples, ", "),
	)
	return sql, args
}

// chunkRows splits rows into slices of at most size elements.
func chunkRows(rows []storage.Row, size int) [][]storage.Row {
	if size <= 0 {
		size = 1
	}
	out := make([][]storage.Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}

// describe surfaces the server's detail text when Postgres reports one.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.users" to
// "public"."users".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
