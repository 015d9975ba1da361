// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A conversion run is a short-lived batch job, so instead of exposing a
// scrape endpoint the collected registry is pushed to a Pushgateway on Flush.
// The run's job name is the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"csv2json/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec
	stepDuration  *prometheus.SummaryVec
	recordCounter *prometheus.CounterVec
	documentCount *prometheus.CounterVec
	documentBytes *prometheus.HistogramVec
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs a Pushgateway backend. An empty jobName defaults to
// "csv2json".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "csv2json"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of run steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record counts by kind (read, grouped).",
		}, []string{"kind"}),
		documentCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.DocumentsTotal,
			Help: "Documents written by sink kind.",
		}, []string{"sink"}),
		documentBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.DocumentBytes,
			Help:    "Size of written documents in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"sink"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":   b.stepCounter,
		"step summary":   b.stepDuration,
		"record counter": b.recordCounter,
		"document count": b.documentCount,
		"document bytes": b.documentBytes,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// IncCounter routes known counter names to their collectors and ignores
// the rest.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.DocumentsTotal:
		if b.documentCount != nil {
			b.documentCount.WithLabelValues(labels["sink"]).Add(delta)
		}
	}
}

// ObserveHistogram routes step durations and document sizes.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StepDurationSeconds:
		if b.stepDuration != nil {
			b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
		}
	case metrics.DocumentBytes:
		if b.documentBytes != nil {
			b.documentBytes.WithLabelValues(labels["sink"]).Observe(value)
		}
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
