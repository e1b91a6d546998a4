// Package config centralizes process configuration. Every tunable is a flag
// whose default is seeded from an environment variable, which in turn falls
// back to an optional YAML file and then to built-in defaults:
//
//	built-in defaults < YAML file (-config / CONFIG_FILE) < env < flags
//
// Typical usage:
//
//	cfg, err := config.Load() // reads os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-addr=:0"})
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage selects the persistence backend.
type Storage struct {
	Kind            string `yaml:"kind"`  // "postgres", "sqlite" or "mssql"
	DSN             string `yaml:"dsn"`   // full connection string; see ResolvedDSN
	Table           string `yaml:"table"` // empty: backend default
	AutoCreateTable bool   `yaml:"auto_create_table"`
}

// Postgres holds the discrete connection parts used to build a DSN when
// Storage.DSN is empty.
type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Ingest tunes the pipeline.
type Ingest struct {
	InsertMode          string `yaml:"insert_mode"` // "bulk" or "single"
	OverallDistribution bool   `yaml:"overall_distribution"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `yaml:"backend"` // none, prometheus, pushgateway, datadog
	PushgatewayURL string `yaml:"pushgateway_url"`
	DatadogAddr    string `yaml:"datadog_addr"`
	Job            string `yaml:"job"`
}

// Config holds all process configuration. It is plain data and safe to copy
// after loading.
type Config struct {
	File           string `yaml:"-"`
	Addr           string `yaml:"addr"`
	APIKey         string `yaml:"api_key"`
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	Ingest   Ingest   `yaml:"ingest"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Addr:           ":3000",
		UploadDir:      "uploads",
		MaxUploadBytes: 5 << 20,
		Storage: Storage{
			AutoCreateTable: true,
		},
		Postgres: Postgres{Port: "5432"},
		Ingest: Ingest{
			InsertMode:          "bulk",
			OverallDistribution: true,
		},
		Metrics: Metrics{
			Backend: "none",
			Job:     "csvingest",
		},
	}
}

// LoadFromArgs builds a Config by reading the optional YAML file, defining
// flags on fs whose defaults come from getenv (falling back to the file and
// built-in values), and parsing args.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Defaults()

	path := configPath(getenv, args)
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	int64EnvOrDefaultFn := func(k string, d int64) int64 {
		if v := getenv(k); v != "" {
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		if v := strings.ToLower(getenv(k)); v != "" {
			switch v {
			case "1", "true", "yes", "on":
				return true
			case "0", "false", "no", "off":
				return false
			}
		}
		return d
	}

	addr := cfg.Addr
	if port := getenv("PORT"); port != "" {
		addr = ":" + port
	}

	fs.StringVar(&cfg.File, "config", path, "YAML config file (CONFIG_FILE)")

	// HTTP
	fs.StringVar(&cfg.Addr, "addr", envOrDefaultFn("ADDR", addr), "Listen address (ADDR, or :$PORT)")
	fs.StringVar(&cfg.APIKey, "api_key", envOrDefaultFn("API_KEY", cfg.APIKey), "Required x-api-key value; empty disables auth")
	fs.StringVar(&cfg.UploadDir, "upload_dir", envOrDefaultFn("CSV_UPLOAD_PATH", cfg.UploadDir), "Directory for in-flight uploads")
	fs.Int64Var(&cfg.MaxUploadBytes, "max_upload_bytes", int64EnvOrDefaultFn("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes), "Largest accepted CSV in bytes")

	// Storage
	fs.StringVar(&cfg.Storage.Kind, "storage_kind", envOrDefaultFn("STORAGE_KIND", cfg.Storage.Kind), "Storage backend: postgres, sqlite or mssql")
	fs.StringVar(&cfg.Storage.DSN, "dsn", envOrDefaultFn("DB_DSN", cfg.Storage.DSN), "Full DSN (required for mssql)")
	fs.StringVar(&cfg.Storage.Table, "table", envOrDefaultFn("DB_TABLE", cfg.Storage.Table), "Users table; empty uses the backend default")
	fs.BoolVar(&cfg.Storage.AutoCreateTable, "auto_create_table", boolEnvOrDefaultFn("AUTO_CREATE_TABLE", cfg.Storage.AutoCreateTable), "Create the users table at startup")

	fs.StringVar(&cfg.Postgres.Host, "pg_host", envOrDefaultFn("PG_HOST", cfg.Postgres.Host), "Postgres host")
	fs.StringVar(&cfg.Postgres.Port, "pg_port", envOrDefaultFn("PG_PORT", cfg.Postgres.Port), "Postgres port")
	fs.StringVar(&cfg.Postgres.User, "pg_user", envOrDefaultFn("PG_USER", cfg.Postgres.User), "Postgres user")
	fs.StringVar(&cfg.Postgres.Password, "pg_password", envOrDefaultFn("PG_PASSWORD", cfg.Postgres.Password), "Postgres password")
	fs.StringVar(&cfg.Postgres.Database, "pg_database", envOrDefaultFn("PG_DATABASE", cfg.Postgres.Database), "Postgres database")

	// Pipeline
	fs.StringVar(&cfg.Ingest.InsertMode, "insert_mode", envOrDefaultFn("INSERT_MODE", cfg.Ingest.InsertMode), "bulk or single")
	fs.BoolVar(&cfg.Ingest.OverallDistribution, "overall_distribution", boolEnvOrDefaultFn("OVERALL_DISTRIBUTION", cfg.Ingest.OverallDistribution), "Also report the distribution over all stored users")

	// Metrics
	fs.StringVar(&cfg.Metrics.Backend, "metrics_backend", envOrDefaultFn("METRICS_BACKEND", cfg.Metrics.Backend), "none, prometheus, pushgateway or datadog")
	fs.StringVar(&cfg.Metrics.PushgatewayURL, "pushgateway_url", envOrDefaultFn("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL), "Pushgateway base URL")
	fs.StringVar(&cfg.Metrics.DatadogAddr, "datadog_addr", envOrDefaultFn("DD_DOGSTATSD_ADDR", cfg.Metrics.DatadogAddr), "DogStatsD address")
	fs.StringVar(&cfg.Metrics.Job, "metrics_job", envOrDefaultFn("METRICS_JOB", cfg.Metrics.Job), "Job label for emitted metrics")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Storage.Kind == "" {
		cfg.Storage.Kind = "sqlite"
		if cfg.Postgres.Host != "" {
			cfg.Storage.Kind = "postgres"
		}
	}
	return cfg, nil
}

// Load is the production entry point: process flags, os.Getenv and
// os.Args[1:].
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// configPath finds the YAML file before flags are parsed, so its values can
// seed flag defaults. An explicit -config flag wins over CONFIG_FILE.
func configPath(getenv func(string) string, args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return getenv("CONFIG_FILE")
}

// mergeFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values; unknown keys are an error.
func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// ResolvedDSN returns the connection string for the configured backend. An
// explicit Storage.DSN wins; Postgres otherwise builds one from its parts and
// SQLite falls back to a local file.
func (c *Config) ResolvedDSN() string {
	if c.Storage.DSN != "" {
		return c.Storage.DSN
	}
	switch c.Storage.Kind {
	case "postgres":
		if c.Postgres.Host == "" {
			return ""
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.Postgres.Host, c.Postgres.Port),
			Path:   "/" + c.Postgres.Database,
		}
		if c.Postgres.User != "" {
			if c.Postgres.Password != "" {
				u.User = url.UserPassword(c.Postgres.User, c.Postgres.Password)
			} else {
				u.User = url.User(c.Postgres.User)
			}
		}
		return u.String()
	case "sqlite":
		return "file:csvingest.db"
	default:
		return ""
	}
}
