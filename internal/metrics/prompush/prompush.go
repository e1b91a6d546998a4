// Package prompush implements a Prometheus backend for the metrics package.
//
// Collectors live in a private registry that can be scraped through Handler
// and, when a Pushgateway URL is configured, pushed on Flush.
package prompush

import (
	"fmt"
	"net/http"

	"github.com/Saujanya0910/csv-to-json/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string // empty: scrape only
	jobName    string
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // csvingest_step_total
	stepDuration  *prometheus.SummaryVec // csvingest_step_duration_seconds
	recordCounter *prometheus.CounterVec // csvingest_records_total
	uploadCounter *prometheus.CounterVec // csvingest_uploads_total
}

// NewBackend builds a backend for jobName. gatewayURL is optional; without
// it Flush is a no-op and metrics are only exposed through Handler.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		jobName = "csvingest"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Records seen per kind (parsed, inserted).",
		},
		[]string{"kind"},
	)
	uploadCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.UploadsTotal,
			Help: "Finished upload requests per outcome (created, rejected, failed).",
		},
		[]string{"outcome"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":   stepCounter,
		"step summary":   stepDuration,
		"record counter": recordCounter,
		"upload counter": uploadCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	if gatewayURL == "" {
		// Scrape mode: expose process and runtime metrics alongside ours.
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		recordCounter: recordCounter,
		uploadCounter: uploadCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RecordsTotal:
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.UploadsTotal:
		if b.uploadCounter == nil {
			return
		}
		b.uploadCounter.WithLabelValues(labels["outcome"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway, if one is configured.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
