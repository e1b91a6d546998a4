package sqlite

// DefaultTable is used when no table is configured.
const DefaultTable = "users"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:users.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string

	// Table is the users table. "main.users" style names are accepted.
	Table string
}

func (c Config) table() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}
