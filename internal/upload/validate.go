// Package upload checks an uploaded file against the structural rules an
// ingestion run depends on, before any of its rows are read.
package upload

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/parser/csv"
)

// DefaultMaxSize is the largest accepted upload (5 MiB).
const DefaultMaxSize int64 = 5 << 20

// DefaultRequiredHeaders must all appear verbatim in the header line.
var DefaultRequiredHeaders = []string{"name.firstName", "name.lastName", "age"}

// DefaultAcceptedTypes are the media types browsers commonly send for .csv.
var DefaultAcceptedTypes = []string{"text/csv", "application/vnd.ms-excel"}

// File describes an upload already stored on disk.
type File struct {
	Path         string
	OriginalName string
	MIMEType     string
	Size         int64
}

// Constraints configure Validate. Zero fields fall back to the defaults.
type Constraints struct {
	MaxSize         int64
	RequiredHeaders []string
	AcceptedTypes   []string
}

// DefaultConstraints returns the stock rule set.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxSize:         DefaultMaxSize,
		RequiredHeaders: append([]string(nil), DefaultRequiredHeaders...),
		AcceptedTypes:   append([]string(nil), DefaultAcceptedTypes...),
	}
}

func (c Constraints) withDefaults() Constraints {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.RequiredHeaders == nil {
		c.RequiredHeaders = DefaultRequiredHeaders
	}
	if len(c.AcceptedTypes) == 0 {
		c.AcceptedTypes = DefaultAcceptedTypes
	}
	return c
}

// Kind classifies a validation failure.
type Kind int

const (
	InvalidType Kind = iota + 1
	InvalidExtension
	TooLarge
	MissingHeader
	HeaderUnreadable
)

func (k Kind) String() string {
	switch k {
	case InvalidType:
		return "invalid_type"
	case InvalidExtension:
		return "invalid_extension"
	case TooLarge:
		return "too_large"
	case MissingHeader:
		return "missing_header"
	case HeaderUnreadable:
		return "header_unreadable"
	default:
		return "unknown"
	}
}

// ValidationError is a rejected upload. Its message is safe to show to the
// client as-is.
type ValidationError struct {
	Kind   Kind
	Header string // MissingHeader only
	Cause  error  // HeaderUnreadable only
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case InvalidType:
		return "Invalid file type. Only CSV files are allowed."
	case InvalidExtension:
		return "Invalid file extension. Only .csv files are allowed."
	case TooLarge:
		return "File too large. Maximum size is 5MB."
	case MissingHeader:
		return "Missing required header: " + e.Header
	case HeaderUnreadable:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return "unable to read header line"
	default:
		return "invalid upload"
	}
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Result is the outcome of Validate. Err is nil exactly when Valid is true.
type Result struct {
	Valid bool
	Err   *ValidationError
}

func fail(e *ValidationError) Result { return Result{Err: e} }

// Validate runs the checks in order and stops at the first failure: media
// type, extension, size, then required headers read from the file's first
// non-blank line.
func Validate(f File, c Constraints) Result {
	c = c.withDefaults()

	if !acceptedType(f.MIMEType, c.AcceptedTypes) {
		return fail(&ValidationError{Kind: InvalidType})
	}
	if !strings.EqualFold(filepath.Ext(f.OriginalName), ".csv") {
		return fail(&ValidationError{Kind: InvalidExtension})
	}
	if f.Size > c.MaxSize {
		return fail(&ValidationError{Kind: TooLarge})
	}

	line, err := csv.ReadHeaderLine(f.Path)
	if err != nil {
		return fail(&ValidationError{Kind: HeaderUnreadable, Cause: fmt.Errorf("read header: %w", err)})
	}
	present := make(map[string]struct{})
	for _, h := range csv.ParseHeaders(line) {
		present[h] = struct{}{}
	}
	for _, req := range c.RequiredHeaders {
		if _, ok := present[req]; !ok {
			return fail(&ValidationError{Kind: MissingHeader, Header: req})
		}
	}
	return Result{Valid: true}
}

func acceptedType(raw string, accepted []string) bool {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mt = strings.TrimSpace(raw)
	}
	for _, a := range accepted {
		if strings.EqualFold(mt, a) {
			return true
		}
	}
	return false
}
