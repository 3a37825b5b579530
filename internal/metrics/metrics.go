// Package metrics exposes Prometheus counters for enrollment, recognition and
// one-time code outcomes.
package metrics

import (
	"context"
	"errors"
	"image"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
)

const namespace = "facegate"

// Metrics holds the service collectors. Recording methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry          *prometheus.Registry
	enrollments       *prometheus.CounterVec
	recognitions      *prometheus.CounterVec
	otp               *prometheus.CounterVec
	errors            *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec
	identities        prometheus.Gauge
}

// New creates the collectors on a dedicated registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Enrollment attempts by outcome",
		}, []string{"outcome"}),
		recognitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Recognition attempts by outcome",
		}, []string{"outcome"}),
		otp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_total",
			Help:      "One-time code operations by outcome",
		}, []string{"op", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Infrastructure failures by operation and kind",
		}, []string{"op", "kind"}),
		extractionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Latency of face descriptor extraction",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"status"}),
		identities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrolled_identities",
			Help:      "Number of enrolled identities at last count",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.enrollments,
		m.recognitions,
		m.otp,
		m.errors,
		m.extractionLatency,
		m.identities,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// EnrollOutcome counts a finished enrollment.
func (m *Metrics) EnrollOutcome(outcome facematch.EnrollOutcome) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(string(outcome)).Inc()
}

// RecognizeOutcome counts a finished recognition.
func (m *Metrics) RecognizeOutcome(outcome facematch.MatchOutcome) {
	if m == nil {
		return
	}
	m.recognitions.WithLabelValues(string(outcome)).Inc()
}

// OTPOutcome counts a one-time code operation.
func (m *Metrics) OTPOutcome(op, outcome string) {
	if m == nil {
		return
	}
	m.otp.WithLabelValues(op, outcome).Inc()
}

// Error counts an infrastructure failure classified by ErrorKind.
func (m *Metrics) Error(op string, err error) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op, ErrorKind(err)).Inc()
}

// SetIdentities records the current gallery size.
func (m *Metrics) SetIdentities(n int) {
	if m == nil {
		return
	}
	m.identities.Set(float64(n))
}

// ErrorKind maps an error to a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, facematch.ErrExtractionTimeout), errors.Is(err, context.DeadlineExceeded):
		return "extraction_timeout"
	case errors.Is(err, facematch.ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, database.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "other"
	}
}

// InstrumentedExtractor records extraction latency by status.
type InstrumentedExtractor struct {
	next    facematch.Extractor
	metrics *Metrics
}

// InstrumentExtractor wraps next with latency observation.
func (m *Metrics) InstrumentExtractor(next facematch.Extractor) *InstrumentedExtractor {
	return &InstrumentedExtractor{next: next, metrics: m}
}

// Model forwards to the wrapped extractor.
func (e *InstrumentedExtractor) Model() string {
	if namer, ok := e.next.(facematch.ModelNamer); ok {
		return namer.Model()
	}
	return ""
}

// Extract implements facematch.Extractor.
func (e *InstrumentedExtractor) Extract(ctx context.Context, img image.Image) (facematch.Descriptor, error) {
	start := time.Now()
	desc, err := e.next.Extract(ctx, img)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, facematch.ErrNoFaceDetected):
		status = "no_face"
	default:
		status = ErrorKind(err)
	}
	if e.metrics != nil {
		e.metrics.extractionLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
	return desc, err
}
