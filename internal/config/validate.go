package config

import (
	"errors"
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is logged but does not block startup.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is the dotted YAML path of the
// offending key (e.g. "storage.kind").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over a loaded Config. It does not mutate
// cfg; callers decide how to surface warnings.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.Addr) == "" {
		issues = append(issues, Issue{SeverityError, "addr", "listen address must not be empty"})
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		issues = append(issues, Issue{SeverityError, "upload_dir", "upload directory must not be empty"})
	}
	if cfg.MaxUploadBytes <= 0 {
		issues = append(issues, Issue{SeverityError, "max_upload_bytes", fmt.Sprintf("max_upload_bytes=%d; must be positive", cfg.MaxUploadBytes)})
	}
	if cfg.APIKey == "" {
		issues = append(issues, Issue{SeverityWarning, "api_key", "no API key configured; requests are not authenticated"})
	}

	issues = append(issues, validateStorage(cfg)...)
	issues = append(issues, validateIngest(cfg.Ingest)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	return issues
}

func validateStorage(cfg *Config) []Issue {
	var issues []Issue

	switch cfg.Storage.Kind {
	case "sqlite":
	case "postgres":
		if cfg.Storage.DSN == "" && cfg.Postgres.Host == "" {
			issues = append(issues, Issue{SeverityError, "storage.dsn", "postgres needs storage.dsn or postgres.host"})
		}
		if cfg.Storage.DSN == "" && cfg.Postgres.Database == "" && cfg.Postgres.Host != "" {
			issues = append(issues, Issue{SeverityWarning, "postgres.database", "no database named; the server default is used"})
		}
	case "mssql":
		if cfg.Storage.DSN == "" {
			issues = append(issues, Issue{SeverityError, "storage.dsn", "mssql requires storage.dsn"})
		}
	case "":
		issues = append(issues, Issue{SeverityError, "storage.kind", "storage.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "storage.kind", fmt.Sprintf("unknown storage kind %q", cfg.Storage.Kind)})
	}
	return issues
}

func validateIngest(in Ingest) []Issue {
	switch in.InsertMode {
	case "bulk", "single":
		return nil
	default:
		return []Issue{{SeverityError, "ingest.insert_mode", fmt.Sprintf("insert_mode %q must be bulk or single", in.InsertMode)}}
	}
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "none", "prometheus":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"})
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires an agent address"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)})
	}
	if strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{SeverityWarning, "metrics.job", "job is empty; metrics fall back to the default label"})
	}
	return issues
}

// Errors joins the error-severity issues into one error, or returns nil.
func Errors(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}
