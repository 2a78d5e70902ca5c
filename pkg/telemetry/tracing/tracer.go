package tracing

import (
	"context"
	"errors"
	"fmt"

	"mantlehq/tracekit/pkg/config"
	"mantlehq/tracekit/pkg/telemetry/logging"
	"mantlehq/tracekit/pkg/telemetry/metrics"
	"mantlehq/tracekit/pkg/telemetry/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName is the logical service name used when the configuration
// leaves service_name unset.
const DefaultServiceName = "application"

const instrumentationName = "mantlehq/tracekit"

// Registry holds the default-if-absent slot for every provisioned role in
// the pipeline. A host application registers its own instance on a slot to
// suppress the corresponding default factory; registering twice for one role
// is a startup error.
type Registry struct {
	Sampler              *registry.Slot[sdktrace.Sampler]
	Propagator           *registry.Slot[propagation.TextMapPropagator]
	BaggageBuilder       *registry.Slot[*BaggagePropagationBuilder]
	CorrelationBuilder   *registry.Slot[*CorrelationScopeDecoratorBuilder]
	CorrelationDecorator *registry.Slot[ScopeDecorator]
	CurrentTraceContext  *registry.Slot[*CurrentTraceContext]
	CompositeHandler     *registry.Slot[*CompositeSpanHandler]
	Tracing              *registry.Slot[*Tracing]
	HTTPTracing          *registry.Slot[*HTTPTracing]
}

// NewRegistry creates a registry with an empty slot per role.
func NewRegistry() *Registry {
	return &Registry{
		Sampler:              registry.NewSlot[sdktrace.Sampler]("sampler"),
		Propagator:           registry.NewSlot[propagation.TextMapPropagator]("propagation-factory"),
		BaggageBuilder:       registry.NewSlot[*BaggagePropagationBuilder]("baggage-propagation-builder"),
		CorrelationBuilder:   registry.NewSlot[*CorrelationScopeDecoratorBuilder]("correlation-scope-decorator-builder"),
		CorrelationDecorator: registry.NewSlot[ScopeDecorator]("correlation-scope-decorator"),
		CurrentTraceContext:  registry.NewSlot[*CurrentTraceContext]("current-trace-context"),
		CompositeHandler:     registry.NewSlot[*CompositeSpanHandler]("composite-span-handler"),
		Tracing:              registry.NewSlot[*Tracing]("tracing"),
		HTTPTracing:          registry.NewSlot[*HTTPTracing]("http-tracing"),
	}
}

// Bootstrap collects every extension point for the tracing pipeline and
// assembles it once. All registration happens single-threaded before
// Configure; the produced singletons are immutable and safe for concurrent
// use afterwards.
type Bootstrap struct {
	cfg      *config.Config
	logger   *logging.Logger
	pipeline *metrics.Pipeline
	registry *Registry

	predicates     prioritized[SpanExportingPredicate]
	reporters      prioritized[SpanReporter]
	filters        prioritized[SpanFilter]
	spanProcessors prioritized[sdktrace.SpanProcessor]

	scopeDecorators []ScopeDecorator

	tracingCustomizers     CustomizerSet[TracingBuilder]
	baggageCustomizers     CustomizerSet[BaggagePropagationBuilder]
	correlationCustomizers CustomizerSet[CorrelationScopeDecoratorBuilder]
	contextCustomizers     CustomizerSet[CurrentTraceContextBuilder]

	configured bool
}

// NewBootstrap creates a bootstrap for the given configuration. The logger
// and metrics pipeline are optional; nil values fall back to a logger built
// from cfg.Logging and, when metrics are enabled, a pipeline with a fresh
// Prometheus registry.
func NewBootstrap(cfg *config.Config, logger *logging.Logger, pipeline *metrics.Pipeline) (*Bootstrap, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	if pipeline == nil && cfg.Metrics.IsEnabled() {
		pipeline = metrics.NewPipeline(&cfg.Metrics, nil)
	}

	return &Bootstrap{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		registry: NewRegistry(),
	}, nil
}

// Registry exposes the role slots so the host can pre-register instances.
func (b *Bootstrap) Registry() *Registry {
	return b.registry
}

// AddSpanExportingPredicate registers an export predicate. Lower priorities
// run earlier; equal priorities keep registration order.
func (b *Bootstrap) AddSpanExportingPredicate(priority int, p SpanExportingPredicate) {
	b.predicates.add(priority, p)
}

// AddSpanReporter registers a span sink.
func (b *Bootstrap) AddSpanReporter(priority int, r SpanReporter) {
	b.reporters.add(priority, r)
}

// AddSpanFilter registers a span filter.
func (b *Bootstrap) AddSpanFilter(priority int, f SpanFilter) {
	b.filters.add(priority, f)
}

// AddSpanProcessor registers an additional span processor. Regardless of
// priority, these run behind the composite handler and only see spans that
// survived its predicates and filters.
func (b *Bootstrap) AddSpanProcessor(priority int, sp sdktrace.SpanProcessor) {
	b.spanProcessors.add(priority, sp)
}

// AddScopeDecorator registers a scope decorator, applied after the built-in
// correlation decorator in registration order.
func (b *Bootstrap) AddScopeDecorator(d ScopeDecorator) {
	b.scopeDecorators = append(b.scopeDecorators, d)
}

// CustomizeTracing registers a tracer builder customizer.
func (b *Bootstrap) CustomizeTracing(priority int, fn TracingCustomizer) {
	b.tracingCustomizers.Add(priority, fn)
}

// CustomizeBaggagePropagation registers a baggage propagation builder
// customizer.
func (b *Bootstrap) CustomizeBaggagePropagation(priority int, fn BaggagePropagationCustomizer) {
	b.baggageCustomizers.Add(priority, fn)
}

// CustomizeCorrelationScope registers a correlation scope builder customizer.
func (b *Bootstrap) CustomizeCorrelationScope(priority int, fn CorrelationScopeCustomizer) {
	b.correlationCustomizers.Add(priority, fn)
}

// CustomizeCurrentTraceContext registers a current-trace-context builder
// customizer.
func (b *Bootstrap) CustomizeCurrentTraceContext(priority int, fn CurrentTraceContextCustomizer) {
	b.contextCustomizers.Add(priority, fn)
}

// Configure assembles the tracing pipeline leaf-first: sampler, propagation,
// correlation, current trace context, composite span handler, then the
// tracer itself. Every role goes through its registry slot, so a
// host-registered instance suppresses the corresponding default.
//
// Configure runs once at startup. Any error — invalid configuration, a
// failing customizer, an unreachable exporter — aborts bring-up; a partial
// pipeline is never returned.
func (b *Bootstrap) Configure(ctx context.Context) (*Tracing, error) {
	if b.configured {
		return nil, errors.New("tracing pipeline already configured")
	}
	b.configured = true

	if !b.cfg.Tracing.IsEnabled() {
		return b.registry.Tracing.Provide(func() (*Tracing, error) {
			return newDisabledTracing(b.resolveServiceName()), nil
		})
	}

	propagationType, err := ParsePropagationType(b.cfg.Tracing.Propagation)
	if err != nil {
		return nil, err
	}

	sampler, err := b.provideSampler()
	if err != nil {
		return nil, err
	}

	propagator, err := b.providePropagator(propagationType)
	if err != nil {
		return nil, err
	}

	current, err := b.provideCurrentTraceContext()
	if err != nil {
		return nil, err
	}

	composite, err := b.provideCompositeHandler(ctx)
	if err != nil {
		return nil, err
	}

	tracing, err := b.registry.Tracing.Provide(func() (*Tracing, error) {
		builder := &TracingBuilder{
			ServiceName:         b.resolveServiceName(),
			Sampler:             sampler,
			Propagator:          propagator,
			CurrentTraceContext: current,
		}

		for _, sp := range b.spanProcessors.sorted() {
			builder.AddSpanProcessor(sp)
		}

		if err := b.tracingCustomizers.Apply(builder); err != nil {
			return nil, fmt.Errorf("tracing customizer failed: %w", err)
		}

		return builder.build(ctx, b.logger, composite)
	})
	if err != nil {
		return nil, err
	}

	if _, err := b.registry.HTTPTracing.Provide(func() (*HTTPTracing, error) {
		return NewHTTPTracing(tracing), nil
	}); err != nil {
		return nil, err
	}

	return tracing, nil
}

// HTTPTracing returns the HTTP tracing singleton. It is available once
// Configure has run; before that it returns nil.
func (b *Bootstrap) HTTPTracing() *HTTPTracing {
	ht, _ := b.registry.HTTPTracing.Get()
	return ht
}

func (b *Bootstrap) resolveServiceName() string {
	if b.cfg.ServiceName != "" {
		return b.cfg.ServiceName
	}
	return DefaultServiceName
}

func (b *Bootstrap) provideSampler() (sdktrace.Sampler, error) {
	probability := b.cfg.Tracing.Sampling.Value()
	sampler, err := b.registry.Sampler.Provide(func() (sdktrace.Sampler, error) {
		if b.pipeline != nil {
			b.pipeline.SetSamplingProbability(probability)
		}
		return NewSampler(probability)
	})
	if err != nil {
		return nil, err
	}
	return sampler, nil
}

func (b *Bootstrap) providePropagator(propagationType PropagationType) (propagation.TextMapPropagator, error) {
	// A pre-registered propagator makes the baggage builder moot; its
	// customizers must not run (or abort startup) for a result that would
	// be discarded.
	if b.registry.Propagator.Registered() {
		p, _ := b.registry.Propagator.Get()
		return p, nil
	}

	base := newBasePropagator(propagationType)

	if !b.cfg.Tracing.Baggage.IsEnabled() {
		return b.registry.Propagator.Provide(func() (propagation.TextMapPropagator, error) {
			return base, nil
		})
	}

	builder, err := b.registry.BaggageBuilder.Provide(func() (*BaggagePropagationBuilder, error) {
		return NewBaggagePropagationBuilder(), nil
	})
	if err != nil {
		return nil, err
	}

	customizers := b.baggageCustomizers.clone()
	customizers.addBuiltIn(0, b.remoteFieldsCustomizer())
	if err := customizers.Apply(builder); err != nil {
		return nil, fmt.Errorf("baggage propagation customizer failed: %w", err)
	}

	return b.registry.Propagator.Provide(func() (propagation.TextMapPropagator, error) {
		return builder.Build(base), nil
	})
}

// remoteFieldsCustomizer is the built-in priority-0 customizer adding every
// configured remote field to the baggage propagation builder.
func (b *Bootstrap) remoteFieldsCustomizer() BaggagePropagationCustomizer {
	return func(builder *BaggagePropagationBuilder) error {
		for _, name := range b.cfg.Tracing.Baggage.RemoteFields {
			builder.AddRemoteField(name)
		}
		return nil
	}
}

// provideCorrelationDecorator assembles the baggage-to-log correlation scope
// decorator. Only called when baggage is enabled; with baggage disabled no
// baggage-specific decorator exists (a host-registered one is still honored
// through its slot).
func (b *Bootstrap) provideCorrelationDecorator() (ScopeDecorator, error) {
	builder, err := b.registry.CorrelationBuilder.Provide(func() (*CorrelationScopeDecoratorBuilder, error) {
		return NewCorrelationScopeDecoratorBuilder(), nil
	})
	if err != nil {
		return nil, err
	}

	customizers := b.correlationCustomizers.clone()
	if b.cfg.Tracing.Baggage.Correlation.IsEnabled() {
		customizers.addBuiltIn(0, b.correlationFieldsCustomizer())
	}
	if err := customizers.Apply(builder); err != nil {
		return nil, fmt.Errorf("correlation scope customizer failed: %w", err)
	}

	return b.registry.CorrelationDecorator.Provide(func() (ScopeDecorator, error) {
		return builder.Build(), nil
	})
}

// correlationFieldsCustomizer is the built-in priority-0 customizer adding
// every configured correlation field with flush-on-update semantics. It is
// gated on the correlation enabled flag.
func (b *Bootstrap) correlationFieldsCustomizer() CorrelationScopeCustomizer {
	return func(builder *CorrelationScopeDecoratorBuilder) error {
		for _, name := range b.cfg.Tracing.Baggage.Correlation.Fields {
			builder.Add(CorrelationField{Name: name, FlushOnUpdate: true})
		}
		return nil
	}
}

func (b *Bootstrap) provideCurrentTraceContext() (*CurrentTraceContext, error) {
	var correlationDecorator ScopeDecorator
	if b.cfg.Tracing.Baggage.IsEnabled() {
		var err error
		correlationDecorator, err = b.provideCorrelationDecorator()
		if err != nil {
			return nil, err
		}
	} else if d, ok := b.registry.CorrelationDecorator.Get(); ok {
		correlationDecorator = d
	}

	return b.registry.CurrentTraceContext.Provide(func() (*CurrentTraceContext, error) {
		builder := NewCurrentTraceContextBuilder()
		if correlationDecorator != nil {
			builder.AddScopeDecorator(correlationDecorator)
		}
		for _, d := range b.scopeDecorators {
			builder.AddScopeDecorator(d)
		}

		if err := b.contextCustomizers.Apply(builder); err != nil {
			return nil, fmt.Errorf("current trace context customizer failed: %w", err)
		}

		return builder.Build(), nil
	})
}

func (b *Bootstrap) provideCompositeHandler(ctx context.Context) (*CompositeSpanHandler, error) {
	if b.cfg.Tracing.Exporter.Enabled && !b.registry.CompositeHandler.Registered() {
		reporter, err := NewOTLPReporter(ctx, b.cfg.Tracing.Exporter)
		if err != nil {
			return nil, err
		}
		// Late priority so host reporters observe spans first.
		b.reporters.add(100, reporter)
	}

	return b.registry.CompositeHandler.Provide(func() (*CompositeSpanHandler, error) {
		return NewCompositeSpanHandler(
			b.predicates.sorted(),
			b.reporters.sorted(),
			b.filters.sorted(),
			b.logger,
			b.pipeline,
		), nil
	})
}

// TracingBuilder is the mutable configuration for the tracer, passed to each
// TracingCustomizer in turn before a single build step converts it into the
// immutable Tracing value.
type TracingBuilder struct {
	// ServiceName is the logical service name recorded on every span.
	ServiceName string

	// Sampler decides which root traces are recorded.
	Sampler sdktrace.Sampler

	// Propagator serializes trace context (and baggage) to carriers.
	Propagator propagation.TextMapPropagator

	// CurrentTraceContext is the process-wide scope holder.
	CurrentTraceContext *CurrentTraceContext

	// SpanProcessors run behind the composite handler, in order. They
	// receive only spans that survived its predicates and filters, in
	// their filtered form.
	SpanProcessors []sdktrace.SpanProcessor

	// ResourceAttributes are additional resource attributes recorded on
	// every span, alongside service.name.
	ResourceAttributes []attribute.KeyValue
}

// AddSpanProcessor appends a span processor.
func (tb *TracingBuilder) AddSpanProcessor(sp sdktrace.SpanProcessor) *TracingBuilder {
	tb.SpanProcessors = append(tb.SpanProcessors, sp)
	return tb
}

// build finalizes the builder. Trace ids are always 128-bit, and a client
// and server span of one hop always get distinct span ids linked
// parent-to-child; the engine has no span joining.
func (tb *TracingBuilder) build(ctx context.Context, logger *logging.Logger, composite *CompositeSpanHandler) (*Tracing, error) {
	attrs := append([]attribute.KeyValue{semconv.ServiceName(tb.ServiceName)}, tb.ResourceAttributes...)
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// The composite is the provider's only span processor; everything else
	// is delegated behind it so its veto and filter decisions are already
	// applied when a downstream processor sees a span.
	for _, sp := range tb.SpanProcessors {
		composite.Delegate(sp)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(tb.Sampler),
		sdktrace.WithSpanProcessor(composite),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(tb.Propagator)

	return &Tracing{
		enabled:     true,
		serviceName: tb.ServiceName,
		provider:    provider,
		tracer:      provider.Tracer(instrumentationName),
		propagator:  tb.Propagator,
		current:     tb.CurrentTraceContext,
		sampler:     tb.Sampler,
		composite:   composite,
		logger:      logger,
	}, nil
}

// Tracing is the assembled pipeline: one tracer, one propagator, one
// sampler, one current-trace-context holder. It is built once at startup and
// safe for concurrent use.
type Tracing struct {
	enabled     bool
	serviceName string
	provider    *sdktrace.TracerProvider
	tracer      trace.Tracer
	propagator  propagation.TextMapPropagator
	current     *CurrentTraceContext
	sampler     sdktrace.Sampler
	composite   *CompositeSpanHandler
	logger      *logging.Logger
}

// newDisabledTracing returns the inert pipeline used when tracing is
// disabled: a noop tracer, an empty propagator, no handlers. Either the full
// pipeline is live or tracing is entirely absent — never a half-wired state.
func newDisabledTracing(serviceName string) *Tracing {
	return &Tracing{
		enabled:     false,
		serviceName: serviceName,
		tracer:      trace.NewNoopTracerProvider().Tracer(instrumentationName),
		propagator:  propagation.NewCompositeTextMapPropagator(),
		current:     NewCurrentTraceContextBuilder().Build(),
	}
}

// Enabled reports whether the pipeline was constructed.
func (t *Tracing) Enabled() bool {
	return t.enabled
}

// ServiceName returns the logical service name recorded on spans.
func (t *Tracing) ServiceName() string {
	return t.serviceName
}

// Tracer returns the process-wide tracer.
func (t *Tracing) Tracer() trace.Tracer {
	return t.tracer
}

// Propagator returns the process-wide propagation factory.
func (t *Tracing) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// CurrentTraceContext returns the process-wide scope holder.
func (t *Tracing) CurrentTraceContext() *CurrentTraceContext {
	return t.current
}

// Sampler returns the sampling policy.
func (t *Tracing) Sampler() sdktrace.Sampler {
	return t.sampler
}

// Start creates a new span linked to the parent in ctx.
//
//	ctx, span := tracing.Start(ctx, "operation")
//	defer span.End()
func (t *Tracing) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans and stops the pipeline. Call before
// process exit, typically with defer.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
	span.RecordError(err)
}

// SetStatus sets the span status from an error: OK when nil, Error
// otherwise.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
