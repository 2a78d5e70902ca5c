package tracing

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Header names set on traced HTTP exchanges.
const (
	// HeaderRequestID carries the per-request id assigned by the server
	// handler when the caller did not send one.
	HeaderRequestID = "X-Request-ID"

	// HeaderTraceID exposes the trace id on responses for debugging.
	HeaderTraceID = "X-Trace-ID"
)

// HTTPTracing derives the HTTP server and client instrumentation from the
// assembled pipeline. It is provisioned as a process-wide singleton.
//
// The server and client sides of one hop never share a span: the client span
// is injected into the outgoing headers, and the server starts its own child
// span from what it extracts.
type HTTPTracing struct {
	tracing *Tracing
}

// NewHTTPTracing creates the HTTP instrumentation pair for a pipeline.
func NewHTTPTracing(t *Tracing) *HTTPTracing {
	return &HTTPTracing{tracing: t}
}

// ServerHandler wraps an http.Handler with server-side tracing: it extracts
// the incoming trace context and baggage, starts a server span, enters a
// trace scope (running every scope decorator, including log correlation),
// assigns a request id, and exposes the trace id on the response.
func (h *HTTPTracing) ServerHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := h.tracing.Extract(r.Context(), r.Header)

		ctx, span := h.tracing.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("request.id", requestID))

		ctx, scope := h.tracing.current.NewScope(ctx, span.SpanContext())
		defer scope.Close()

		w.Header().Set(HeaderRequestID, requestID)
		if sc := span.SpanContext(); sc.IsValid() {
			w.Header().Set(HeaderTraceID, sc.TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientTransport wraps an http.RoundTripper with client-side tracing: it
// starts a client span and injects the trace context and allowed baggage
// into the outgoing headers. A nil base uses http.DefaultTransport.
func (h *HTTPTracing) ClientTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &clientTransport{base: base, tracing: h.tracing}
}

type clientTransport struct {
	base    http.RoundTripper
	tracing *Tracing
}

// RoundTrip implements http.RoundTripper.
func (t *clientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracing.tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	req = req.Clone(ctx)
	t.tracing.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		SetError(span, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	return resp, nil
}
