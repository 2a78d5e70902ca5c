package tracing

import (
	"context"
	"errors"
	"fmt"

	"mantlehq/tracekit/pkg/telemetry/logging"
	"mantlehq/tracekit/pkg/telemetry/metrics"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanExportingPredicate decides per finished span whether it continues down
// the export chain. Any predicate returning false drops the span before
// filters and reporters run.
type SpanExportingPredicate interface {
	ShouldExport(span sdktrace.ReadOnlySpan) bool
}

// SpanExportingPredicateFunc adapts a function to SpanExportingPredicate.
type SpanExportingPredicateFunc func(span sdktrace.ReadOnlySpan) bool

// ShouldExport implements SpanExportingPredicate.
func (f SpanExportingPredicateFunc) ShouldExport(span sdktrace.ReadOnlySpan) bool {
	return f(span)
}

// SpanFilter may replace a finished span with a modified view before
// reporters see it, or drop it by returning nil.
type SpanFilter interface {
	Filter(span sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan
}

// SpanFilterFunc adapts a function to SpanFilter.
type SpanFilterFunc func(span sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan

// Filter implements SpanFilter.
func (f SpanFilterFunc) Filter(span sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
	return f(span)
}

// SpanReporter is a sink for finished spans that survived the predicates and
// filters.
type SpanReporter interface {
	Report(span sdktrace.ReadOnlySpan) error
}

// SpanReporterFunc adapts a function to SpanReporter.
type SpanReporterFunc func(span sdktrace.ReadOnlySpan) error

// Report implements SpanReporter.
func (f SpanReporterFunc) Report(span sdktrace.ReadOnlySpan) error {
	return f(span)
}

// CompositeSpanHandler runs every registered predicate, filter, and reporter
// against each finished span, in their priority order: predicates veto,
// filters rewrite or drop, reporters sink. It is the only span processor
// attached to the tracer provider; every other processor is delegated behind
// it and receives a finished span only after the composite's filtering
// decisions — a vetoed or dropped span never reaches a downstream processor,
// and a rewritten span reaches them in its rewritten form.
//
// A failing handler is isolated: its panic or error is recovered, logged,
// and counted, and processing continues with the remaining handlers. One
// misbehaving reporter never blocks export to the others.
//
// With nothing registered the composite is a pass-through.
type CompositeSpanHandler struct {
	predicates []SpanExportingPredicate
	filters    []SpanFilter
	reporters  []SpanReporter
	downstream []sdktrace.SpanProcessor

	logger   *logging.Logger
	pipeline *metrics.Pipeline
}

// NewCompositeSpanHandler builds the composite from already-ordered handler
// lists. The logger and pipeline are optional; nil disables operational
// logging and metrics respectively.
func NewCompositeSpanHandler(
	predicates []SpanExportingPredicate,
	reporters []SpanReporter,
	filters []SpanFilter,
	logger *logging.Logger,
	pipeline *metrics.Pipeline,
) *CompositeSpanHandler {
	return &CompositeSpanHandler{
		predicates: predicates,
		filters:    filters,
		reporters:  reporters,
		logger:     logger,
		pipeline:   pipeline,
	}
}

// Delegate attaches a span processor behind the composite's filtering
// decisions. Delegated processors run in attachment order, after the
// reporters, and only see spans that survived every predicate and filter.
func (h *CompositeSpanHandler) Delegate(sp sdktrace.SpanProcessor) {
	h.downstream = append(h.downstream, sp)
}

// OnStart implements sdktrace.SpanProcessor. The composite itself only acts
// on finished spans; span starts are forwarded so delegated processors can
// observe them.
func (h *CompositeSpanHandler) OnStart(ctx context.Context, span sdktrace.ReadWriteSpan) {
	for _, sp := range h.downstream {
		sp.OnStart(ctx, span)
	}
}

// OnEnd implements sdktrace.SpanProcessor.
func (h *CompositeSpanHandler) OnEnd(span sdktrace.ReadOnlySpan) {
	for _, p := range h.predicates {
		if !h.shouldExport(p, span) {
			h.recordSpan(metrics.ResultDroppedPredicate)
			return
		}
	}

	for _, f := range h.filters {
		span = h.filter(f, span)
		if span == nil {
			h.recordSpan(metrics.ResultDroppedFilter)
			return
		}
	}

	for _, r := range h.reporters {
		h.report(r, span)
	}

	h.recordSpan(metrics.ResultExported)

	for _, sp := range h.downstream {
		sp.OnEnd(span)
	}
}

// Shutdown implements sdktrace.SpanProcessor, forwarding to reporters that
// hold resources and to delegated processors.
func (h *CompositeSpanHandler) Shutdown(ctx context.Context) error {
	var errs []error
	for _, r := range h.reporters {
		if s, ok := r.(interface{ Shutdown(context.Context) error }); ok {
			if err := s.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, sp := range h.downstream {
		if err := sp.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ForceFlush implements sdktrace.SpanProcessor, forwarding to reporters that
// buffer and to delegated processors.
func (h *CompositeSpanHandler) ForceFlush(ctx context.Context) error {
	var errs []error
	for _, r := range h.reporters {
		if f, ok := r.(interface{ ForceFlush(context.Context) error }); ok {
			if err := f.ForceFlush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, sp := range h.downstream {
		if err := sp.ForceFlush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// shouldExport runs one predicate, treating a panic as "no veto" so a broken
// predicate cannot silently discard every span.
func (h *CompositeSpanHandler) shouldExport(p SpanExportingPredicate, span sdktrace.ReadOnlySpan) (keep bool) {
	defer h.recoverHandler(metrics.HandlerPredicate, span, &keep, true)
	return p.ShouldExport(span)
}

// filter runs one filter, treating a panic as "leave the span unchanged".
func (h *CompositeSpanHandler) filter(f SpanFilter, span sdktrace.ReadOnlySpan) (out sdktrace.ReadOnlySpan) {
	defer func() {
		if r := recover(); r != nil {
			h.handlerFailure(metrics.HandlerFilter, span, fmt.Errorf("panic: %v", r))
			out = span
		}
	}()
	return f.Filter(span)
}

// report runs one reporter, recovering panics and logging errors.
func (h *CompositeSpanHandler) report(r SpanReporter, span sdktrace.ReadOnlySpan) {
	defer func() {
		if rec := recover(); rec != nil {
			h.handlerFailure(metrics.HandlerReporter, span, fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := r.Report(span); err != nil {
		h.handlerFailure(metrics.HandlerReporter, span, err)
	}
}

func (h *CompositeSpanHandler) recoverHandler(kind string, span sdktrace.ReadOnlySpan, keep *bool, fallback bool) {
	if r := recover(); r != nil {
		h.handlerFailure(kind, span, fmt.Errorf("panic: %v", r))
		*keep = fallback
	}
}

func (h *CompositeSpanHandler) handlerFailure(kind string, span sdktrace.ReadOnlySpan, err error) {
	if h.logger != nil {
		h.logger.Error("span handler failed",
			"kind", kind,
			"span", span.Name(),
			"error", err,
		)
	}
	if h.pipeline != nil {
		h.pipeline.RecordHandlerFailure(kind)
	}
}

func (h *CompositeSpanHandler) recordSpan(result string) {
	if h.pipeline != nil {
		h.pipeline.RecordSpan(result)
	}
}
