// Package observe provides application-wide observability primitives for
// VoxTutor: OpenTelemetry metrics, distributed tracing, structured logging,
// and an instrumented HTTP transport that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all VoxTutor metrics.
const meterName = "github.com/voxtutor/voxtutor"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// AskDuration tracks backend question-answer latency.
	AskDuration metric.Float64Histogram

	// UploadDuration tracks document upload latency.
	UploadDuration metric.Float64Histogram

	// SynthDuration tracks speech synthesis latency (request to first audio).
	SynthDuration metric.Float64Histogram

	// --- Counters ---

	// QuestionsAsked counts questions sent to the backend. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("status", ...)
	QuestionsAsked metric.Int64Counter

	// Uploads counts document uploads. Use with attribute:
	//   attribute.String("status", ...)
	Uploads metric.Int64Counter

	// Deletes counts confirmed note deletions.
	Deletes metric.Int64Counter

	// CaptureRestarts counts automatic speech-capture engine restarts.
	CaptureRestarts metric.Int64Counter

	// BackendErrors counts failed backend calls. Use with attribute:
	//   attribute.String("operation", ...)
	BackendErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveListeners tracks whether a capture session is currently live
	// (0 or 1 for a single-user client).
	ActiveListeners metric.Int64UpDownCounter

	// ActivePlaybacks tracks in-flight speech playback operations.
	ActivePlaybacks metric.Int64UpDownCounter

	// --- HTTP transport ---

	// HTTPRequestDuration tracks backend HTTP request time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// interactive question answering, where multi-second LLM calls are normal.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AskDuration, err = m.Float64Histogram("voxtutor.ask.duration",
		metric.WithDescription("Latency of backend question answering."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UploadDuration, err = m.Float64Histogram("voxtutor.upload.duration",
		metric.WithDescription("Latency of document uploads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthDuration, err = m.Float64Histogram("voxtutor.synth.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.QuestionsAsked, err = m.Int64Counter("voxtutor.questions.asked",
		metric.WithDescription("Total questions sent to the backend by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.Uploads, err = m.Int64Counter("voxtutor.uploads",
		metric.WithDescription("Total document uploads by status."),
	); err != nil {
		return nil, err
	}
	if met.Deletes, err = m.Int64Counter("voxtutor.deletes",
		metric.WithDescription("Total confirmed note deletions."),
	); err != nil {
		return nil, err
	}
	if met.CaptureRestarts, err = m.Int64Counter("voxtutor.capture.restarts",
		metric.WithDescription("Total automatic speech-capture engine restarts."),
	); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("voxtutor.backend.errors",
		metric.WithDescription("Total failed backend calls by operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveListeners, err = m.Int64UpDownCounter("voxtutor.active_listeners",
		metric.WithDescription("Whether a speech-capture session is live."),
	); err != nil {
		return nil, err
	}
	if met.ActivePlaybacks, err = m.Int64UpDownCounter("voxtutor.active_playbacks",
		metric.WithDescription("Number of in-flight speech playback operations."),
	); err != nil {
		return nil, err
	}

	// HTTP transport histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxtutor.http.request.duration",
		metric.WithDescription("Backend HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordQuestion is a convenience method that records a question counter
// increment with the standard attribute set.
func (m *Metrics) RecordQuestion(ctx context.Context, mode, status string) {
	m.QuestionsAsked.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}

// RecordUpload is a convenience method that records an upload counter
// increment.
func (m *Metrics) RecordUpload(ctx context.Context, status string) {
	m.Uploads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordDelete is a convenience method that records a deletion counter
// increment.
func (m *Metrics) RecordDelete(ctx context.Context) {
	m.Deletes.Add(ctx, 1)
}

// RecordCaptureRestart is a convenience method that records an automatic
// capture engine restart.
func (m *Metrics) RecordCaptureRestart(ctx context.Context) {
	m.CaptureRestarts.Add(ctx, 1)
}

// RecordBackendError is a convenience method that records a backend error
// counter increment.
func (m *Metrics) RecordBackendError(ctx context.Context, operation string) {
	m.BackendErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}
