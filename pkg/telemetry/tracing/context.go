package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Scope represents one entered trace scope. Close restores whatever state
// the scope's decorators established; it must be called when the scope's
// unit of work finishes, typically with defer.
type Scope interface {
	Close()
}

type scopeFunc func()

func (f scopeFunc) Close() { f() }

// ScopeDecorator hooks scope entry and exit. DecorateScope runs when a span
// context becomes current; it may derive a new context (for example to
// install a logging correlation map) and may return a close function that
// runs when the scope exits.
type ScopeDecorator interface {
	DecorateScope(ctx context.Context, sc trace.SpanContext) (context.Context, func())
}

// ScopeDecoratorFunc adapts a function to the ScopeDecorator interface.
type ScopeDecoratorFunc func(ctx context.Context, sc trace.SpanContext) (context.Context, func())

// DecorateScope implements ScopeDecorator.
func (f ScopeDecoratorFunc) DecorateScope(ctx context.Context, sc trace.SpanContext) (context.Context, func()) {
	return f(ctx, sc)
}

// CurrentTraceContextBuilder collects scope decorators before the
// process-wide CurrentTraceContext is finalized. Decorators apply in
// registration order: the first-added decorator's entry logic runs outermost
// and its exit logic runs last.
type CurrentTraceContextBuilder struct {
	decorators []ScopeDecorator
}

// NewCurrentTraceContextBuilder returns an empty builder.
func NewCurrentTraceContextBuilder() *CurrentTraceContextBuilder {
	return &CurrentTraceContextBuilder{}
}

// AddScopeDecorator appends a decorator.
func (b *CurrentTraceContextBuilder) AddScopeDecorator(d ScopeDecorator) *CurrentTraceContextBuilder {
	b.decorators = append(b.decorators, d)
	return b
}

// ScopeDecorators returns a copy of the registered decorators.
func (b *CurrentTraceContextBuilder) ScopeDecorators() []ScopeDecorator {
	out := make([]ScopeDecorator, len(b.decorators))
	copy(out, b.decorators)
	return out
}

// Build finalizes the builder.
func (b *CurrentTraceContextBuilder) Build() *CurrentTraceContext {
	decorators := make([]ScopeDecorator, len(b.decorators))
	copy(decorators, b.decorators)
	return &CurrentTraceContext{decorators: decorators}
}

// CurrentTraceContext is the process-wide holder of the active trace
// context. It is built once at startup and shared read-only by all request
// handling goroutines; per-request state lives entirely in the contexts and
// scopes it hands out.
type CurrentTraceContext struct {
	decorators []ScopeDecorator
}

// NewScope makes the span context current on a derived context and runs
// every scope decorator. Decorators nest: entry logic runs in registration
// order, exit logic in reverse, so the first-registered decorator wraps all
// the others.
func (c *CurrentTraceContext) NewScope(ctx context.Context, sc trace.SpanContext) (context.Context, Scope) {
	ctx = trace.ContextWithSpanContext(ctx, sc)

	closers := make([]func(), 0, len(c.decorators))
	for _, d := range c.decorators {
		var closer func()
		ctx, closer = d.DecorateScope(ctx, sc)
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	return ctx, scopeFunc(func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	})
}

// Active returns the span context current in ctx. The zero SpanContext is
// returned when none is active.
func (c *CurrentTraceContext) Active(ctx context.Context) trace.SpanContext {
	return trace.SpanContextFromContext(ctx)
}
