// Package httpapi exposes the CSV ingestion pipeline over HTTP.
//
// Routes:
//
//	GET  /                 → liveness text
//	POST /api/csv/process  → multipart upload (field csvFile), returns JSON
//	POST /api/process-csv  → same handler, legacy path
//	GET  /metrics          → Prometheus exposition, when a handler is configured
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Saujanya0910/csv-to-json/internal/agedist"
	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/ingest"
	"github.com/Saujanya0910/csv-to-json/internal/metrics"
	"github.com/Saujanya0910/csv-to-json/internal/upload"
)

// FormField is the multipart field that carries the CSV.
const FormField = "csvFile"

// multipartSlack is allowed on top of MaxUploadBytes for boundaries and part
// headers before the request body is cut off.
const multipartSlack = 1 << 20

// Processor runs one stored upload through the pipeline. *ingest.Service
// satisfies it.
type Processor interface {
	Process(ctx context.Context, f upload.File) (*ingest.Result, error)
}

// Config controls server startup.
type Config struct {
	Addr           string
	APIKey         string // empty disables auth
	UploadDir      string
	MaxUploadBytes int64
	Job            string       // metrics label
	Metrics        http.Handler // served at /metrics when non-nil
}

// Server wraps http.Server with the ingestion routes.
type Server struct {
	cfg    Config
	proc   Processor
	logger *log.Logger
	mux    *http.ServeMux
	srv    *http.Server
}

const msgNoFile = "No CSV file uploaded"

var errNoFile = errors.New("no csv file in request")

// NewServer constructs a Server with its routes registered.
func NewServer(cfg Config, proc Processor, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = upload.DefaultMaxSize
	}
	if cfg.Job == "" {
		cfg.Job = ingest.DefaultJob
	}
	s := &Server{
		cfg:    cfg,
		proc:   proc,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until Shutdown. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	process := s.requireAPIKey(http.HandlerFunc(s.handleProcess))
	s.mux.Handle("POST /api/csv/process", process)
	s.mux.Handle("POST /api/process-csv", process)

	if s.cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", s.cfg.Metrics)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Hello World!")
}

// requireAPIKey checks the x-api-key header. It is a pass-through when no key
// is configured.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	if s.cfg.APIKey == "" {
		return next
	}
	want := []byte(s.cfg.APIKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("x-api-key")
		switch {
		case got == "":
			writeJSON(w, http.StatusUnauthorized, authResponse{Message: "API key is missing from the request header"})
		case subtle.ConstantTimeCompare([]byte(got), want) != 1:
			writeJSON(w, http.StatusForbidden, authResponse{Message: "Invalid API key"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type processData struct {
	CurrentAgeDistribution agedist.Distribution `json:"currentAgeDistribution"`
	OverallAgeDistribution agedist.Distribution `json:"overallAgeDistribution,omitempty"`
	Records                []domain.User        `json:"records"`
}

type processResponse struct {
	Message string      `json:"message"`
	Data    processData `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartSlack)

	f, err := s.saveUpload(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	res, err := s.proc.Process(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}

	metrics.RecordUpload(s.cfg.Job, "created")
	writeJSON(w, http.StatusCreated, processResponse{
		Message: "CSV processed successfully",
		Data: processData{
			CurrentAgeDistribution: res.Current,
			OverallAgeDistribution: res.Overall,
			Records:                res.Records,
		},
	})
}

// saveUpload streams the csvFile part to UploadDir under a random name that
// keeps the client's extension.
func (s *Server) saveUpload(r *http.Request) (upload.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return upload.File{}, errNoFile
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return upload.File{}, errNoFile
		}
		if err != nil {
			return upload.File{}, bodyError(err)
		}
		if part.FormName() != FormField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		f, err := s.store(part)
		_ = part.Close()
		if err != nil {
			return upload.File{}, err
		}
		f.OriginalName = part.FileName()
		f.MIMEType = part.Header.Get("Content-Type")
		return f, nil
	}
}

func (s *Server) store(part *multipart.Part) (upload.File, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return upload.File{}, fmt.Errorf("upload dir: %w", err)
	}
	name := FormField + "-" + uuid.NewString() + filepath.Ext(filepath.Base(part.FileName()))
	path := filepath.Join(s.cfg.UploadDir, name)

	out, err := os.Create(path)
	if err != nil {
		return upload.File{}, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(out, part)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return upload.File{}, bodyError(err)
	}
	return upload.File{Path: path, Size: n}, nil
}

// bodyError turns a truncated request body into the size rejection.
func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &upload.ValidationError{Kind: upload.TooLarge}
	}
	return fmt.Errorf("read upload: %w", err)
}

// fail logs err, counts the outcome and writes the matching response.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var verr *upload.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, errNoFile):
		metrics.RecordUpload(s.cfg.Job, "rejected")
	default:
		metrics.RecordUpload(s.cfg.Job, "failed")
		s.logger.Printf("httpapi: process failed: %v", err)
	}
	writeError(w, err)
}

// writeError maps pipeline errors to HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *upload.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: verr.Error()})
	case errors.Is(err, errNoFile):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: msgNoFile})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error", Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("httpapi: encode response:", err)
	}
}
