package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Transport is an [http.RoundTripper] that instruments outgoing backend
// requests:
//
//  1. Starts an OTel client span for each request.
//  2. Injects W3C Trace Context into outgoing headers so the backend can
//     join the trace.
//  3. Records request duration to [Metrics.HTTPRequestDuration].
//  4. Logs request completion with status code, duration, and trace info.
type Transport struct {
	// Base is the underlying transport. When nil, [http.DefaultTransport]
	// is used.
	Base http.RoundTripper

	// Metrics receives the request duration histogram samples.
	Metrics *Metrics

	prop propagation.TraceContext
}

// NewTransport wraps base with instrumentation recording into m.
func NewTransport(base http.RoundTripper, m *Metrics) *Transport {
	return &Transport{Base: base, Metrics: m}
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx, span := StartSpan(req.Context(), "HTTP "+req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLPath(req.URL.Path),
			semconv.ServerAddress(req.URL.Host),
		),
	)
	defer span.End()

	// Clone before mutating headers: RoundTrippers must not modify the
	// caller's request.
	req = req.Clone(ctx)
	t.prop.Inject(ctx, propagation.HeaderCarrier(req.Header))

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)

	duration := time.Since(start)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	if t.Metrics != nil {
		t.Metrics.HTTPRequestDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("method", req.Method),
				attribute.String("path", req.URL.Path),
			),
		)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.LogAttrs(ctx, slog.LevelWarn, "backend request failed",
			slog.String("trace_id", CorrelationID(ctx)),
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Duration("duration", duration),
			slog.String("err", err.Error()),
		)
		return resp, err
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	slog.LogAttrs(ctx, slog.LevelDebug, "backend request completed",
		slog.String("trace_id", CorrelationID(ctx)),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)
	return resp, nil
}
