// Package metrics records operational metrics of a conversion run behind a
// small backend-agnostic interface.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete systems live in subpackages (prompush for a Prometheus
// Pushgateway, datadog for DogStatsD) and are installed with SetBackend.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal           = "csv2json_step_total"
	StepDurationSeconds = "csv2json_step_duration_seconds"
	RecordsTotal        = "csv2json_records_total"
	DocumentsTotal      = "csv2json_documents_total"
	DocumentBytes       = "csv2json_document_bytes"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a distribution-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step and observes its latency.
// Steps are "read" and "write".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRecords adds delta to the record counter for kind, e.g. "read" or
// "grouped". Non-positive deltas are ignored.
func RecordRecords(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordDocument counts one written document and observes its size.
func RecordDocument(job, sink string, size int) {
	lbls := Labels{
		"job":  job,
		"sink": sink,
	}
	backend.IncCounter(DocumentsTotal, 1, lbls)
	backend.ObserveHistogram(DocumentBytes, float64(size), lbls)
}
