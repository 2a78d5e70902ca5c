package tracing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"mantlehq/tracekit/pkg/config"
	"mantlehq/tracekit/pkg/telemetry/logging"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func boolp(b bool) *bool { return &b }

func floatp(f float64) *float64 { return &f }

// testBootstrap builds a bootstrap with a quiet logger and no exporter.
func testBootstrap(t *testing.T, cfg *config.Config) *Bootstrap {
	t.Helper()

	logger, _ := bufferedLogger(t)
	boot, err := NewBootstrap(cfg, logger, nil)
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}
	return boot
}

func TestConfigureDisabled(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Enabled = boolp(false)

	boot := testBootstrap(t, cfg)
	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if tr.Enabled() {
		t.Error("Enabled() = true for disabled tracing")
	}
	if got := tr.ServiceName(); got != DefaultServiceName {
		t.Errorf("ServiceName() = %q, want %q", got, DefaultServiceName)
	}

	ctx, span := tr.Start(context.Background(), "op")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing produced a valid span context")
	}

	headers := http.Header{}
	tr.Inject(ctx, headers)
	if len(headers) != 0 {
		t.Errorf("disabled tracing injected headers: %v", headers)
	}

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestConfigureB3WithoutBaggage(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Propagation = "B3"
	cfg.Tracing.Baggage.Enabled = boolp(false)
	cfg.Tracing.Sampling.Probability = floatp(1.0)

	boot := testBootstrap(t, cfg)
	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	// Service name falls back to the literal default when unset.
	if got := tr.ServiceName(); got != "application" {
		t.Errorf("ServiceName() = %q, want application", got)
	}

	ctx, span := tr.Start(context.Background(), "op")
	defer span.End()
	if !span.SpanContext().IsSampled() {
		t.Error("probability 1.0 did not sample the root span")
	}

	headers := http.Header{}
	tr.Inject(ctx, headers)

	if headers.Get("b3") == "" {
		t.Errorf("b3 header not injected; headers = %v", headers)
	}
	if headers.Get("Traceparent") != "" {
		t.Error("traceparent injected under B3 propagation")
	}
	if headers.Get("Baggage") != "" {
		t.Error("baggage injected with baggage disabled")
	}

	got := tr.CurrentTraceContext().Active(tr.Extract(context.Background(), headers))
	if got.TraceID() != span.SpanContext().TraceID() {
		t.Errorf("extracted trace id = %s, want %s", got.TraceID(), span.SpanContext().TraceID())
	}
}

func TestConfigureW3CWithBaggageAndCorrelation(t *testing.T) {
	cfg := config.NewDefault()
	cfg.ServiceName = "checkout"
	cfg.Tracing.Sampling.Probability = floatp(1.0)
	cfg.Tracing.Baggage.RemoteFields = []string{"tenant-id"}
	cfg.Tracing.Baggage.Correlation.Fields = []string{"tenant-id"}

	boot := testBootstrap(t, cfg)
	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	if got := tr.ServiceName(); got != "checkout" {
		t.Errorf("ServiceName() = %q, want checkout", got)
	}

	ctx, span := tr.Start(context.Background(), "op")
	defer span.End()

	ctx, scope := tr.CurrentTraceContext().NewScope(ctx, span.SpanContext())
	defer scope.Close()

	tenant := NewField("tenant-id")
	ctx, err = tenant.Set(ctx, "acme")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Correlation is flush-on-update for configured fields.
	cc := logging.CorrelationFrom(ctx)
	if cc == nil {
		t.Fatal("no correlation context installed by the trace scope")
	}
	if got, _ := cc.Get("tenant-id"); got != "acme" {
		t.Errorf("correlation tenant-id = %q, want acme", got)
	}

	// A field outside the remote set stays local.
	ctx, err = NewField("internal").Set(ctx, "x")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	headers := http.Header{}
	tr.Inject(ctx, headers)

	if headers.Get("traceparent") == "" {
		t.Errorf("traceparent not injected; headers = %v", headers)
	}
	bag := headers.Get("baggage")
	if !strings.Contains(bag, "tenant-id=acme") {
		t.Errorf("baggage header = %q, want tenant-id carried", bag)
	}
	if strings.Contains(bag, "internal") {
		t.Errorf("baggage header = %q, local field leaked", bag)
	}

	remote := tr.Extract(context.Background(), headers)
	if got := tenant.Value(remote); got != "acme" {
		t.Errorf("remote tenant-id = %q, want acme", got)
	}
}

// A host-registered sampler suppresses the default probability sampler.
func TestRegisteredSamplerWins(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Sampling.Probability = floatp(0.0)

	boot := testBootstrap(t, cfg)
	if err := boot.Registry().Sampler.Register(sdktrace.AlwaysSample()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	_, span := tr.Start(context.Background(), "op")
	defer span.End()
	if !span.SpanContext().IsSampled() {
		t.Error("registered always-on sampler was not used")
	}
	if got := tr.Sampler().Description(); got != sdktrace.AlwaysSample().Description() {
		t.Errorf("Sampler().Description() = %q, want the registered sampler", got)
	}
}

// The built-in customizer seeding configured remote fields runs before host
// customizers at the same priority, so a host customizer sees and can amend
// the configured set.
func TestBaggageCustomizerSeesConfiguredFields(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Sampling.Probability = floatp(1.0)
	cfg.Tracing.Baggage.RemoteFields = []string{"tenant-id"}

	boot := testBootstrap(t, cfg)

	var observed []string
	boot.CustomizeBaggagePropagation(0, func(b *BaggagePropagationBuilder) error {
		observed = b.RemoteFields()
		b.AddRemoteField("request-source")
		return nil
	})

	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	if len(observed) != 1 || observed[0] != "tenant-id" {
		t.Errorf("customizer observed %v, want the configured field already present", observed)
	}

	ctx := context.Background()
	for _, pair := range []struct{ name, value string }{
		{"tenant-id", "acme"},
		{"request-source", "web"},
	} {
		var err error
		ctx, err = NewField(pair.name).Set(ctx, pair.value)
		if err != nil {
			t.Fatalf("Set(%s) error = %v", pair.name, err)
		}
	}

	headers := http.Header{}
	tr.Inject(ctx, headers)

	bag := headers.Get("baggage")
	if !strings.Contains(bag, "tenant-id=acme") || !strings.Contains(bag, "request-source=web") {
		t.Errorf("baggage header = %q, want both fields carried", bag)
	}
}

func TestTracingCustomizerErrorAborts(t *testing.T) {
	cfg := config.NewDefault()
	boot := testBootstrap(t, cfg)

	boot.CustomizeTracing(0, func(_ *TracingBuilder) error {
		return context.Canceled
	})

	if _, err := boot.Configure(context.Background()); err == nil {
		t.Fatal("Configure() succeeded despite a failing customizer")
	} else if !strings.Contains(err.Error(), "tracing customizer failed") {
		t.Errorf("error = %v, want customizer failure", err)
	}
}

func TestConfigureInvalidPropagation(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Propagation = "zipkin"

	boot := testBootstrap(t, cfg)
	if _, err := boot.Configure(context.Background()); err == nil {
		t.Fatal("Configure() accepted an unknown propagation type")
	}
}

func TestConfigureOutOfRangeProbability(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Sampling.Probability = floatp(1.5)

	boot := testBootstrap(t, cfg)
	if _, err := boot.Configure(context.Background()); err == nil {
		t.Fatal("Configure() accepted an out-of-range probability")
	}
}

func TestConfigureRunsOnce(t *testing.T) {
	boot := testBootstrap(t, config.NewDefault())

	if _, err := boot.Configure(context.Background()); err != nil {
		t.Fatalf("first Configure() error = %v", err)
	}
	if _, err := boot.Configure(context.Background()); err == nil {
		t.Fatal("second Configure() succeeded")
	}
}

func TestHTTPTracingProvisioned(t *testing.T) {
	boot := testBootstrap(t, config.NewDefault())

	if boot.HTTPTracing() != nil {
		t.Fatal("HTTPTracing() non-nil before Configure")
	}

	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	if boot.HTTPTracing() == nil {
		t.Fatal("HTTPTracing() nil after Configure")
	}
}

// Host span processors run behind the composite: a vetoed span never reaches
// them, and a filtered span reaches them already rewritten.
func TestHostSpanProcessorsGatedByComposite(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Sampling.Probability = floatp(1.0)

	boot := testBootstrap(t, cfg)

	boot.AddSpanExportingPredicate(0, SpanExportingPredicateFunc(func(s sdktrace.ReadOnlySpan) bool {
		return s.Name() != "internal-op"
	}))
	boot.AddSpanFilter(0, SpanFilterFunc(func(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
		return renamedSpan{ReadOnlySpan: s, name: s.Name() + "-redacted"}
	}))

	downstream := &recordingProcessor{}
	boot.AddSpanProcessor(0, downstream)

	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	_, vetoed := tr.Start(context.Background(), "internal-op")
	vetoed.End()
	if len(downstream.names) != 0 {
		t.Fatalf("host processor observed vetoed span(s) %v", downstream.names)
	}

	_, span := tr.Start(context.Background(), "op")
	span.End()
	if len(downstream.names) != 1 || downstream.names[0] != "op-redacted" {
		t.Errorf("host processor saw %v, want the span in its filtered form", downstream.names)
	}
}

// A pre-registered propagator suppresses the baggage builder entirely: its
// customizers never run and cannot abort startup.
func TestRegisteredPropagatorSkipsBaggageCustomizers(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tracing.Sampling.Probability = floatp(1.0)
	cfg.Tracing.Baggage.RemoteFields = []string{"tenant-id"}

	boot := testBootstrap(t, cfg)
	if err := boot.Registry().Propagator.Register(propagation.TraceContext{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ran := false
	boot.CustomizeBaggagePropagation(0, func(_ *BaggagePropagationBuilder) error {
		ran = true
		return errors.New("must never run")
	})

	tr, err := boot.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	if ran {
		t.Fatal("baggage customizer ran despite a registered propagator")
	}

	ctx, err := NewField("tenant-id").Set(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	ctx, span := tr.Start(ctx, "op")
	defer span.End()

	headers := http.Header{}
	tr.Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Errorf("registered propagator not used; headers = %v", headers)
	}
	if headers.Get("Baggage") != "" {
		t.Error("baggage injected despite the registered plain propagator")
	}
}
