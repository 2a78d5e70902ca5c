// Package tracing assembles the OpenTelemetry tracing pipeline for a host
// application: propagation format, baggage, sampling, span handlers, and the
// tracer itself, composed once at startup from configuration and from the
// host's registered extension points.
//
// # Composition
//
// The pipeline is built leaf-first by Bootstrap.Configure:
//
//  1. Sampler — a probability sampler from tracing.sampling.probability.
//  2. Propagation — B3 single-header or W3C trace context, optionally
//     wrapped with a baggage decorator carrying the configured remote
//     fields.
//  3. Correlation — a scope decorator mirroring configured baggage fields
//     into the logging context, with flush-on-update semantics.
//  4. CurrentTraceContext — the process-wide scope holder, with all scope
//     decorators applied in registration order.
//  5. CompositeSpanHandler — every registered predicate, filter, and
//     reporter, ordered by priority. It is the provider's only span
//     processor; host processors are delegated behind it and receive only
//     the spans that survive its filtering decisions.
//  6. Tracing — the tracer provider binding all of the above, plus the
//     HTTPTracing client/server pair derived from it.
//
// Every role resolves through a default-if-absent registry slot: if the host
// registered its own instance, the default factory never runs.
//
//	cfg, _ := config.LoadConfigWithEnvOverrides("tracekit.yaml")
//	boot, _ := tracing.NewBootstrap(cfg, logger, nil)
//	boot.AddSpanReporter(10, myReporter)
//	boot.CustomizeBaggagePropagation(10, func(b *tracing.BaggagePropagationBuilder) error {
//	    b.AddRemoteField("request-source")
//	    return nil
//	})
//	t, err := boot.Configure(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Shutdown(context.Background())
//
// # Extension ordering
//
// Predicates, filters, reporters, and customizers all declare an integer
// priority; lower runs earlier, ties keep registration order. The built-in
// customizers seeding remote and correlation fields from configuration run
// at priority 0, before host customizers of the same priority, so a host
// customizer can inspect and amend the configured field set.
//
// # Failure model
//
// Configuration errors and failing customizers abort Configure — a partial
// pipeline is never activated. At runtime, a panicking or erroring span
// handler is isolated by the composite: the failure is logged and counted,
// and the remaining handlers still run.
//
// # Concurrency
//
// All composition runs single-threaded at startup. The produced Tracing,
// CurrentTraceContext, sampler, and propagator are immutable afterwards and
// safe for unbounded concurrent use.
package tracing
