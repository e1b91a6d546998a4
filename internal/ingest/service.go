// Package ingest runs one uploaded CSV through the whole pipeline: validate,
// parse, normalize, persist and summarize.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Saujanya0910/csv-to-json/internal/agedist"
	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/metrics"
	"github.com/Saujanya0910/csv-to-json/internal/parser/csv"
	"github.com/Saujanya0910/csv-to-json/internal/transformer"
	"github.com/Saujanya0910/csv-to-json/internal/upload"
	"github.com/Saujanya0910/csv-to-json/pkg/records"
)

// Store is the persistence the pipeline needs. storage.Repository satisfies
// it.
type Store interface {
	InsertUsersInBulk(ctx context.Context, users []domain.User) (int64, error)
	InsertUser(ctx context.Context, name string, age int, address domain.Address, additionalInfo records.Record) error
	GetAllUsers(ctx context.Context) ([]domain.UserAge, error)
}

// InsertMode selects how a batch is written.
type InsertMode string

const (
	InsertBulk   InsertMode = "bulk"
	InsertSingle InsertMode = "single"
)

// parseFile is a test hook that points to csv.ParseFile by default.
var parseFile = csv.ParseFile

// DefaultJob labels metrics when Options.Job is empty.
const DefaultJob = "csvingest"

// Options tune Process.
type Options struct {
	// InsertMode defaults to InsertBulk.
	InsertMode InsertMode
	// OverallDistribution also reports the distribution over every stored
	// row, read back after the insert.
	OverallDistribution bool
	// Job labels emitted metrics.
	Job string
}

// Service processes uploads. The zero value is not usable; Store is
// required.
type Service struct {
	Store       Store
	Constraints upload.Constraints
	Options     Options
	Logger      *log.Logger
}

// Result is a successful run. Overall is nil unless
// Options.OverallDistribution is set.
type Result struct {
	Records  []domain.User
	Current  agedist.Distribution
	Overall  agedist.Distribution
	Inserted int64
}

func (s *Service) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *Service) job() string {
	if s.Options.Job != "" {
		return s.Options.Job
	}
	return DefaultJob
}

// timed runs fn and reports it as one pipeline step.
func (s *Service) timed(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(s.job(), step, err, time.Since(start))
	return err
}

// Process runs f through the pipeline. The file at f.Path is removed before
// Process returns, whatever the outcome.
//
// Errors are *upload.ValidationError for rejected uploads, *ParseError when
// the file cannot be read, and *PersistenceError when the store fails.
func (s *Service) Process(ctx context.Context, f upload.File) (*Result, error) {
	defer s.cleanup(f.Path)

	var verr *upload.ValidationError
	_ = s.timed(metrics.StepValidate, func() error {
		if res := upload.Validate(f, s.Constraints); !res.Valid {
			verr = res.Err
			return verr
		}
		return nil
	})
	if verr != nil {
		s.logger().Printf("ingest: rejected file=%q reason=%q", f.OriginalName, verr.Error())
		return nil, verr
	}

	var raw []records.Record
	if err := s.timed(metrics.StepParse, func() error {
		var err error
		raw, err = parseFile(f.Path)
		return err
	}); err != nil {
		return nil, &ParseError{Err: err}
	}
	metrics.RecordRow(s.job(), metrics.KindParsed, int64(len(raw)))

	var users []domain.User
	_ = s.timed(metrics.StepNormalize, func() error {
		users = transformer.NormalizeAll(raw)
		return nil
	})

	inserted, err := s.persist(ctx, users)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Records:  users,
		Current:  agedist.FromUsers(users),
		Inserted: inserted,
	}
	s.logger().Printf("Current Age-Group %% Distribution: %s", res.Current)

	if s.Options.OverallDistribution {
		var stored []domain.UserAge
		if err := s.timed(metrics.StepOverall, func() error {
			var err error
			stored, err = s.Store.GetAllUsers(ctx)
			return err
		}); err != nil {
			return nil, &PersistenceError{Op: "fetch users", Err: err}
		}
		res.Overall = agedist.FromUserAges(stored)
		s.logger().Printf("Overall Age-Group %% Distribution: %s", res.Overall)
	}

	s.logger().Printf("ingest: file=%q rows=%d inserted=%d", f.OriginalName, len(users), inserted)
	return res, nil
}

// persist writes users according to the insert mode. An empty batch is not
// written at all.
func (s *Service) persist(ctx context.Context, users []domain.User) (int64, error) {
	if len(users) == 0 {
		s.logger().Printf("ingest: no data rows, skipping insert")
		return 0, nil
	}

	var (
		inserted int64
		op       string
	)
	err := s.timed(metrics.StepPersist, func() error {
		switch s.Options.InsertMode {
		case "", InsertBulk:
			op = "bulk insert"
			n, err := s.Store.InsertUsersInBulk(ctx, users)
			inserted = n
			return err
		case InsertSingle:
			op = "insert user"
			for i, u := range users {
				if err := s.Store.InsertUser(ctx, u.Name, u.Age, u.Address, u.AdditionalInfo); err != nil {
					return fmt.Errorf("row %d: %w", i, err)
				}
				inserted++
			}
			return nil
		default:
			op = "insert"
			return fmt.Errorf("unknown insert mode %q", s.Options.InsertMode)
		}
	})
	if err != nil {
		return 0, &PersistenceError{Op: op, Err: err}
	}
	metrics.RecordRow(s.job(), metrics.KindInserted, inserted)
	return inserted, nil
}

// cleanup removes the uploaded file. Failures are logged, never returned.
func (s *Service) cleanup(path string) {
	if path == "" {
		return
	}
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	metrics.RecordStep(s.job(), metrics.StepCleanup, err, 0)
	if err != nil {
		s.logger().Printf("ingest: cleanup %s: %v", path, err)
	}
}
