// Package metrics records build and compilation metrics with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

const namespace = "kiln"

// Recorder implements ports.Metrics on a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	compilations        *prometheus.CounterVec
	compilationDuration *prometheus.HistogramVec
	cancellations       *prometheus.CounterVec
	builds              *prometheus.CounterVec
	buildDuration       *prometheus.HistogramVec
}

var _ ports.Metrics = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "compiler",
				Name:      "compilations_total",
				Help:      "Module compilations by module, execution mode and outcome",
			},
			[]string{"module", "mode", "outcome"},
		),
		compilationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "compiler",
				Name:      "compilation_duration_seconds",
				Help:      "Wall time of a single module compilation",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"mode"},
		),
		cancellations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cancel",
				Name:      "total",
				Help:      "Cancellation requests by terminal state",
			},
			[]string{"state"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "build",
				Name:      "total",
				Help:      "Orchestrated builds by kind and result",
			},
			[]string{"kind", "succeeded"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "build",
				Name:      "duration_seconds",
				Help:      "Wall time of an orchestrated build",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"kind"},
		),
	}
	r.registry.MustRegister(
		r.compilations,
		r.compilationDuration,
		r.cancellations,
		r.builds,
		r.buildDuration,
	)
	return r
}

// Registry returns the registry holding kiln's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordCompilation implements ports.Metrics.
func (r *Recorder) RecordCompilation(module string, mode domain.ExecutionKind, outcome domain.Outcome, d time.Duration) {
	r.compilations.WithLabelValues(module, string(mode), string(outcome)).Inc()
	r.compilationDuration.WithLabelValues(string(mode)).Observe(d.Seconds())
}

// RecordCancellation implements ports.Metrics.
func (r *Recorder) RecordCancellation(state domain.CancelState) {
	r.cancellations.WithLabelValues(state.String()).Inc()
}

// RecordBuild implements ports.Metrics.
func (r *Recorder) RecordBuild(kind string, succeeded bool, d time.Duration) {
	r.builds.WithLabelValues(kind, strconv.FormatBool(succeeded)).Inc()
	r.buildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write metrics textfile"), "path", path)
	}
	return nil
}
