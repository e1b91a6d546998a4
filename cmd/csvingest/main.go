// Command csvingest serves the CSV upload API: each uploaded file is parsed
// into nested records, normalized into users, persisted and summarized as an
// age-group distribution.
//
// Usage:
//
//	go run ./cmd/csvingest -addr :3000 -api_key secret
//	go run ./cmd/csvingest -config csvingest.yaml -validate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Saujanya0910/csv-to-json/internal/config"
	"github.com/Saujanya0910/csv-to-json/internal/httpapi"
	"github.com/Saujanya0910/csv-to-json/internal/ingest"
	"github.com/Saujanya0910/csv-to-json/internal/metrics"
	"github.com/Saujanya0910/csv-to-json/internal/metrics/datadog"
	"github.com/Saujanya0910/csv-to-json/internal/metrics/prompush"
	"github.com/Saujanya0910/csv-to-json/internal/storage"
	"github.com/Saujanya0910/csv-to-json/internal/upload"

	// register all backends with the storage factory.
	_ "github.com/Saujanya0910/csv-to-json/internal/storage/all"
)

const shutdownTimeout = 15 * time.Second

// server is the subset of *httpapi.Server that run drives.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Test seams.
var (
	newServer = func(cfg httpapi.Config, proc httpapi.Processor, logger *log.Logger) server {
		return httpapi.NewServer(cfg, proc, logger)
	}
	openStore = storage.New
	getenv    = os.Getenv
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Fatalf("csvingest: %v", err)
	}
}

// run loads configuration, wires storage, metrics and the HTTP server, and
// serves until ctx is cancelled or the server fails.
func run(ctx context.Context, args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("csvingest", flag.ContinueOnError)
	validateOnly := fs.Bool("validate", false, "validate the configuration and exit")

	cfg, err := config.LoadFromArgs(fs, getenv, args)
	if err != nil {
		return err
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		logger.Printf("config: %s: %s: %s", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Errors(issues); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	if *validateOnly {
		logger.Printf("configuration is valid")
		return nil
	}

	metricsHandler, flush, err := setupMetrics(cfg, logger)
	if err != nil {
		return err
	}
	defer flush()

	scfg := storage.Config{
		Kind:  cfg.Storage.Kind,
		DSN:   cfg.ResolvedDSN(),
		Table: cfg.Storage.Table,
	}
	repo, err := openStore(ctx, scfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	if cfg.Storage.AutoCreateTable {
		if err := storage.EnsureSchema(ctx, scfg, repo); err != nil {
			return err
		}
	}
	logger.Printf("storage: kind=%s table=%q", scfg.Kind, scfg.Table)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	svc := &ingest.Service{
		Store: repo,
		Constraints: upload.Constraints{
			MaxSize:         cfg.MaxUploadBytes,
			RequiredHeaders: upload.DefaultRequiredHeaders,
			AcceptedTypes:   upload.DefaultAcceptedTypes,
		},
		Options: ingest.Options{
			InsertMode:          ingest.InsertMode(cfg.Ingest.InsertMode),
			OverallDistribution: cfg.Ingest.OverallDistribution,
			Job:                 cfg.Metrics.Job,
		},
		Logger: logger,
	}

	srv := newServer(httpapi.Config{
		Addr:           cfg.Addr,
		APIKey:         cfg.APIKey,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Job:            cfg.Metrics.Job,
		Metrics:        metricsHandler,
	}, svc, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		logger.Printf("listening on %s", cfg.Addr)
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Printf("server stopped")
		return nil
	})
	return g.Wait()
}

// setupMetrics installs the configured backend. The returned handler is
// non-nil when the backend can be scraped; flush is always safe to call.
func setupMetrics(cfg *config.Config, logger *log.Logger) (http.Handler, func(), error) {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			logger.Printf("metrics: flush error: %v", err)
		}
	}

	switch cfg.Metrics.Backend {
	case "prometheus", "pushgateway":
		gw := ""
		if cfg.Metrics.Backend == "pushgateway" {
			gw = cfg.Metrics.PushgatewayURL
		}
		b, err := prompush.NewBackend(cfg.Metrics.Job, gw)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		logger.Printf("metrics: backend=%s job=%s url=%q", cfg.Metrics.Backend, cfg.Metrics.Job, gw)
		return b.Handler(), flush, nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			GlobalTags: []string{"service:" + cfg.Metrics.Job},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		logger.Printf("metrics: backend=datadog addr=%s", cfg.Metrics.DatadogAddr)
		return nil, flush, nil

	default:
		return nil, func() {}, nil
	}
}
