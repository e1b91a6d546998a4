// Package metrics records operational metrics from the ingestion pipeline
// without tying callers to a concrete metrics system.
//
// A global Backend defaults to a no-op, so instrumentation is always safe to
// call. Concrete backends live in subpackages (prompush, datadog) and are
// installed once at startup with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal           = "csvingest_step_total"
	StepDurationSeconds = "csvingest_step_duration_seconds"
	RecordsTotal        = "csvingest_records_total"
	UploadsTotal        = "csvingest_uploads_total"
)

// Pipeline steps reported through RecordStep.
const (
	StepValidate  = "validate"
	StepParse     = "parse"
	StepNormalize = "normalize"
	StepPersist   = "persist"
	StepOverall   = "overall"
	StepCleanup   = "cleanup"
)

// Record kinds reported through RecordRow.
const (
	KindParsed   = "parsed"
	KindInserted = "inserted"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system must satisfy.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the global backend. nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and observes its
// duration, labelled by outcome.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow adds delta records of the given kind. Non-positive deltas are
// ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordUpload counts one finished upload request by outcome
// ("created", "rejected", "failed").
func RecordUpload(job, outcome string) {
	current().IncCounter(UploadsTotal, 1, Labels{"job": job, "outcome": outcome})
}
