package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Saujanya0910/csv-to-json/internal/httpapi"
	"github.com/Saujanya0910/csv-to-json/internal/ingest"
	"github.com/Saujanya0910/csv-to-json/internal/storage"
	"github.com/Saujanya0910/csv-to-json/internal/upload"
)

// fakeServer is a test double implementing the server interface. listen
// runs in place of ListenAndServe; nil returns immediately.
type fakeServer struct {
	listen   func() error
	shutdown chan struct{}
	once     sync.Once
}

func newFakeServer(listen func(*fakeServer) error) *fakeServer {
	f := &fakeServer{shutdown: make(chan struct{})}
	if listen != nil {
		f.listen = func() error { return listen(f) }
	}
	return f
}

func (f *fakeServer) ListenAndServe() error {
	if f.listen == nil {
		return nil
	}
	return f.listen()
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.once.Do(func() { close(f.shutdown) })
	return nil
}

type captured struct {
	cfg  httpapi.Config
	proc httpapi.Processor
}

// install swaps the package seams for the duration of the test.
func install(t *testing.T, env map[string]string, srv *fakeServer) *captured {
	t.Helper()
	origServer, origEnv, origStore := newServer, getenv, openStore
	t.Cleanup(func() { newServer, getenv, openStore = origServer, origEnv, origStore })

	got := &captured{}
	newServer = func(cfg httpapi.Config, proc httpapi.Processor, _ *log.Logger) server {
		got.cfg, got.proc = cfg, proc
		return srv
	}
	getenv = func(k string) string { return env[k] }
	return got
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"-dsn=file:" + filepath.Join(dir, "users.db"),
		"-upload_dir=" + filepath.Join(dir, "uploads"),
	}
}

func TestRun_ValidateOnly(t *testing.T) {
	srv := newFakeServer(nil)
	got := install(t, nil, srv)

	var buf bytes.Buffer
	err := run(context.Background(), []string{"-validate", "-api_key=k"}, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.proc != nil {
		t.Fatalf("server built in validate mode")
	}
	if !strings.Contains(buf.String(), "configuration is valid") {
		t.Fatalf("log = %q", buf.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	install(t, nil, newFakeServer(nil))

	var buf bytes.Buffer
	err := run(context.Background(), []string{"-insert_mode=upsert"}, log.New(&buf, "", 0))
	if err == nil || !strings.Contains(err.Error(), "configuration is invalid") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(buf.String(), "config: error: ingest.insert_mode") {
		t.Fatalf("issue not logged: %q", buf.String())
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	install(t, nil, newFakeServer(nil))

	if err := run(context.Background(), []string{"-bogus"}, log.New(&bytes.Buffer{}, "", 0)); err == nil {
		t.Fatalf("expected flag error")
	}
}

func TestRun_WiresPipelineEndToEnd(t *testing.T) {
	var (
		res     *ingest.Result
		procErr error
	)
	var got *captured
	srv := newFakeServer(func(*fakeServer) error {
		dir := got.cfg.UploadDir
		body := "name.firstName,name.lastName,age\nA,One,15\nB,Two,45\nC,Three,65\n"
		p := filepath.Join(dir, "csvFile-test.csv")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return err
		}
		res, procErr = got.proc.Process(context.Background(), upload.File{
			Path: p, OriginalName: "people.csv", MIMEType: "text/csv", Size: int64(len(body)),
		})
		return nil
	})
	got = install(t, map[string]string{"API_KEY": "s3cret", "PORT": "4000"}, srv)

	var buf bytes.Buffer
	if err := run(context.Background(), sqliteArgs(t), log.New(&buf, "", 0)); err != nil {
		t.Fatalf("run: %v\n%s", err, buf.String())
	}

	if got.cfg.Addr != ":4000" || got.cfg.APIKey != "s3cret" || got.cfg.MaxUploadBytes != upload.DefaultMaxSize {
		t.Fatalf("server config = %+v", got.cfg)
	}
	if got.cfg.Metrics != nil {
		t.Fatalf("metrics handler set with backend=none")
	}
	if procErr != nil {
		t.Fatalf("Process: %v", procErr)
	}
	if res.Inserted != 3 || res.Current.Get("40-60") != "33.33" {
		t.Fatalf("result = %+v", res)
	}
	if res.Overall == nil || res.Overall.Get(">60") != "33.33" {
		t.Fatalf("overall = %v", res.Overall)
	}
	for _, want := range []string{"storage: kind=sqlite", "listening on :4000", "server stopped"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("log missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRun_PrometheusHandler(t *testing.T) {
	got := install(t, nil, newFakeServer(nil))

	args := append(sqliteArgs(t), "-metrics_backend=prometheus")
	if err := run(context.Background(), args, log.New(&bytes.Buffer{}, "", 0)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.cfg.Metrics == nil {
		t.Fatalf("prometheus backend should expose a handler")
	}
}

func TestRun_ListenErrorPropagates(t *testing.T) {
	boom := errors.New("address already in use")
	install(t, nil, newFakeServer(func(*fakeServer) error { return boom }))

	err := run(context.Background(), sqliteArgs(t), log.New(&bytes.Buffer{}, "", 0))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestRun_ContextCancelShutsDown(t *testing.T) {
	started := make(chan struct{})
	srv := newFakeServer(func(f *fakeServer) error {
		close(started)
		<-f.shutdown
		return nil
	})
	install(t, nil, srv)

	ctx, cancel := context.WithCancel(context.Background())
	args := sqliteArgs(t)
	done := make(chan error, 1)
	go func() { done <- run(ctx, args, log.New(&bytes.Buffer{}, "", 0)) }()

	select {
	case <-started:
	case err := <-done:
		t.Fatalf("run returned before serving: %v", err)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRun_StorageOpenError(t *testing.T) {
	install(t, nil, newFakeServer(nil))
	openStore = func(context.Context, storage.Config) (storage.Repository, error) {
		return nil, errors.New("no route to host")
	}

	err := run(context.Background(), sqliteArgs(t), log.New(&bytes.Buffer{}, "", 0))
	if err == nil || !strings.Contains(err.Error(), "open storage: no route to host") {
		t.Fatalf("err = %v", err)
	}
}

// Example_run documents the validate-only path.
func Example_run() {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	origEnv := getenv
	getenv = func(string) string { return "" }
	defer func() { getenv = origEnv }()

	_ = run(context.Background(), []string{"-api_key", "k", "-validate"}, logger)
	fmt.Print(buf.String())

	// Output:
	// configuration is valid
}
