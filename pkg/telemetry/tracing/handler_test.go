package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"mantlehq/tracekit/pkg/config"
	"mantlehq/tracekit/pkg/telemetry/logging"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// endedSpan produces one finished ReadOnlySpan to feed handlers directly.
func endedSpan(t *testing.T, name string) sdktrace.ReadOnlySpan {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(rec),
	)
	_, span := tp.Tracer("test").Start(context.Background(), name)
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	return spans[0]
}

func bufferedLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	return logger, &buf
}

// renamedSpan presents the wrapped span under a different name, the way a
// filter rewrites a span without copying it.
type renamedSpan struct {
	sdktrace.ReadOnlySpan
	name string
}

func (s renamedSpan) Name() string { return s.name }

func TestCompositeReportersRunInOrder(t *testing.T) {
	var order []string
	reporter := func(name string) SpanReporter {
		return SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
			order = append(order, name)
			return nil
		})
	}

	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{reporter("first"), reporter("second"), reporter("third")},
		nil, nil, nil)

	h.OnEnd(endedSpan(t, "op"))

	want := "first,second,third"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("reporter order = %s, want %s", got, want)
	}
}

func TestCompositePredicateVeto(t *testing.T) {
	reported := 0
	h := NewCompositeSpanHandler(
		[]SpanExportingPredicate{
			SpanExportingPredicateFunc(func(_ sdktrace.ReadOnlySpan) bool { return true }),
			SpanExportingPredicateFunc(func(_ sdktrace.ReadOnlySpan) bool { return false }),
		},
		[]SpanReporter{SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
			reported++
			return nil
		})},
		nil, nil, nil)

	h.OnEnd(endedSpan(t, "op"))

	if reported != 0 {
		t.Errorf("vetoed span was reported %d times", reported)
	}
}

func TestCompositeFilterDrop(t *testing.T) {
	reported := 0
	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
			reported++
			return nil
		})},
		[]SpanFilter{SpanFilterFunc(func(_ sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
			return nil
		})},
		nil, nil)

	h.OnEnd(endedSpan(t, "op"))

	if reported != 0 {
		t.Errorf("filtered-out span was reported %d times", reported)
	}
}

func TestCompositeFilterRewrite(t *testing.T) {
	var seen []string
	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{SpanReporterFunc(func(s sdktrace.ReadOnlySpan) error {
			seen = append(seen, s.Name())
			return nil
		})},
		[]SpanFilter{SpanFilterFunc(func(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
			return renamedSpan{ReadOnlySpan: s, name: "redacted"}
		})},
		nil, nil)

	h.OnEnd(endedSpan(t, "sensitive"))

	if len(seen) != 1 || seen[0] != "redacted" {
		t.Errorf("reporter saw %v, want the rewritten name", seen)
	}
}

// Filters chain: each filter receives the previous filter's output.
func TestCompositeFiltersChain(t *testing.T) {
	var seen string
	rename := func(name string) SpanFilter {
		return SpanFilterFunc(func(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
			return renamedSpan{ReadOnlySpan: s, name: s.Name() + "-" + name}
		})
	}

	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{SpanReporterFunc(func(s sdktrace.ReadOnlySpan) error {
			seen = s.Name()
			return nil
		})},
		[]SpanFilter{rename("a"), rename("b")},
		nil, nil)

	h.OnEnd(endedSpan(t, "op"))

	if seen != "op-a-b" {
		t.Errorf("reporter saw %q, want op-a-b", seen)
	}
}

func TestCompositeReporterPanicIsolated(t *testing.T) {
	logger, buf := bufferedLogger(t)

	secondRan := false
	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{
			SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error { panic("reporter exploded") }),
			SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
				secondRan = true
				return nil
			}),
		},
		nil, logger, nil)

	h.OnEnd(endedSpan(t, "op"))

	if !secondRan {
		t.Error("panicking reporter blocked the next reporter")
	}
	if !strings.Contains(buf.String(), "span handler failed") {
		t.Errorf("panic was not logged: %s", buf.String())
	}
}

func TestCompositeReporterErrorLoggedAndContinues(t *testing.T) {
	logger, buf := bufferedLogger(t)

	secondRan := false
	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{
			SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error { return errors.New("sink unavailable") }),
			SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
				secondRan = true
				return nil
			}),
		},
		nil, logger, nil)

	h.OnEnd(endedSpan(t, "op"))

	if !secondRan {
		t.Error("erroring reporter blocked the next reporter")
	}
	if !strings.Contains(buf.String(), "sink unavailable") {
		t.Errorf("reporter error was not logged: %s", buf.String())
	}
}

// A panicking predicate must not veto: a broken predicate cannot silently
// discard every span.
func TestCompositePredicatePanicDoesNotVeto(t *testing.T) {
	reported := 0
	h := NewCompositeSpanHandler(
		[]SpanExportingPredicate{
			SpanExportingPredicateFunc(func(_ sdktrace.ReadOnlySpan) bool { panic("predicate exploded") }),
		},
		[]SpanReporter{SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
			reported++
			return nil
		})},
		nil, nil, nil)

	h.OnEnd(endedSpan(t, "op"))

	if reported != 1 {
		t.Errorf("span reported %d times after predicate panic, want 1", reported)
	}
}

// A panicking filter leaves the span unchanged.
func TestCompositeFilterPanicLeavesSpanUnchanged(t *testing.T) {
	var seen string
	h := NewCompositeSpanHandler(nil,
		[]SpanReporter{SpanReporterFunc(func(s sdktrace.ReadOnlySpan) error {
			seen = s.Name()
			return nil
		})},
		[]SpanFilter{SpanFilterFunc(func(_ sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
			panic("filter exploded")
		})},
		nil, nil)

	h.OnEnd(endedSpan(t, "original"))

	if seen != "original" {
		t.Errorf("reporter saw %q after filter panic, want original", seen)
	}
}

func TestCompositeEmptyIsPassThrough(t *testing.T) {
	h := NewCompositeSpanHandler(nil, nil, nil, nil, nil)
	h.OnEnd(endedSpan(t, "op")) // must not panic
	if err := h.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := h.ForceFlush(context.Background()); err != nil {
		t.Errorf("ForceFlush() error = %v", err)
	}
}

type closableReporter struct {
	shutdowns int
	err       error
}

func (r *closableReporter) Report(_ sdktrace.ReadOnlySpan) error { return nil }

func (r *closableReporter) Shutdown(_ context.Context) error {
	r.shutdowns++
	return r.err
}

func TestCompositeShutdownForwardsToReporters(t *testing.T) {
	failing := &closableReporter{err: errors.New("close failed")}
	clean := &closableReporter{}

	h := NewCompositeSpanHandler(nil, []SpanReporter{failing, clean}, nil, nil, nil)

	err := h.Shutdown(context.Background())
	if !errors.Is(err, failing.err) {
		t.Errorf("Shutdown() error = %v, want the reporter's error", err)
	}
	if failing.shutdowns != 1 || clean.shutdowns != 1 {
		t.Errorf("shutdown counts = %d, %d, want 1, 1", failing.shutdowns, clean.shutdowns)
	}
}

// recordingProcessor is a delegated span processor capturing what reaches it.
type recordingProcessor struct {
	starts    int
	names     []string
	shutdowns int
}

func (p *recordingProcessor) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) { p.starts++ }

func (p *recordingProcessor) OnEnd(s sdktrace.ReadOnlySpan) { p.names = append(p.names, s.Name()) }

func (p *recordingProcessor) Shutdown(_ context.Context) error {
	p.shutdowns++
	return nil
}

func (p *recordingProcessor) ForceFlush(_ context.Context) error { return nil }

// A vetoed span never reaches a delegated processor; a surviving one does,
// after the reporters.
func TestCompositeGatesDelegatedProcessors(t *testing.T) {
	var order []string

	h := NewCompositeSpanHandler(
		[]SpanExportingPredicate{SpanExportingPredicateFunc(func(s sdktrace.ReadOnlySpan) bool {
			return s.Name() != "internal-op"
		})},
		[]SpanReporter{SpanReporterFunc(func(_ sdktrace.ReadOnlySpan) error {
			order = append(order, "reporter")
			return nil
		})},
		nil, nil, nil)

	downstream := &recordingProcessor{}
	h.Delegate(downstream)
	h.Delegate(onEndFunc(func() { order = append(order, "downstream") }))

	h.OnEnd(endedSpan(t, "internal-op"))
	if len(downstream.names) != 0 {
		t.Errorf("delegated processor observed vetoed span(s) %v", downstream.names)
	}

	h.OnEnd(endedSpan(t, "op"))
	if len(downstream.names) != 1 || downstream.names[0] != "op" {
		t.Errorf("delegated processor saw %v, want the surviving span", downstream.names)
	}
	if got := strings.Join(order, ","); got != "reporter,downstream" {
		t.Errorf("order = %s, want reporters before delegated processors", got)
	}
}

// onEndFunc adapts a closure to the OnEnd hook for ordering checks.
type onEndFunc func()

func (f onEndFunc) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}
func (f onEndFunc) OnEnd(_ sdktrace.ReadOnlySpan)                       { f() }
func (f onEndFunc) Shutdown(_ context.Context) error                    { return nil }
func (f onEndFunc) ForceFlush(_ context.Context) error                  { return nil }

// A span dropped by a filter never reaches a delegated processor, and a
// rewritten span reaches it in its rewritten form.
func TestDelegatedProcessorSeesFilterDecisions(t *testing.T) {
	h := NewCompositeSpanHandler(nil, nil,
		[]SpanFilter{SpanFilterFunc(func(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
			if s.Name() == "noisy" {
				return nil
			}
			return renamedSpan{ReadOnlySpan: s, name: "redacted"}
		})},
		nil, nil)

	downstream := &recordingProcessor{}
	h.Delegate(downstream)

	h.OnEnd(endedSpan(t, "noisy"))
	h.OnEnd(endedSpan(t, "sensitive"))

	if len(downstream.names) != 1 || downstream.names[0] != "redacted" {
		t.Errorf("delegated processor saw %v, want only the rewritten span", downstream.names)
	}
}

func TestCompositeForwardsLifecycleToDelegates(t *testing.T) {
	h := NewCompositeSpanHandler(nil, nil, nil, nil, nil)
	downstream := &recordingProcessor{}
	h.Delegate(downstream)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(rec),
		sdktrace.WithSpanProcessor(h),
	)
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()

	if downstream.starts != 1 {
		t.Errorf("OnStart forwarded %d times, want 1", downstream.starts)
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if downstream.shutdowns != 1 {
		t.Errorf("Shutdown forwarded %d times, want 1", downstream.shutdowns)
	}
}
