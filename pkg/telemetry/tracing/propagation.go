package tracing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
)

// PropagationType selects the trace context header format. It is resolved
// once from configuration at startup and never changes afterwards.
type PropagationType string

const (
	// PropagationB3 uses the B3 single-header format ("b3"), without a
	// parent span id on the wire.
	PropagationB3 PropagationType = "B3"

	// PropagationW3C uses the W3C Trace Context format
	// (traceparent/tracestate).
	PropagationW3C PropagationType = "W3C"
)

// ParsePropagationType parses a configured propagation type string. Unknown
// values are a configuration error reported at startup, never defaulted.
func ParsePropagationType(s string) (PropagationType, error) {
	switch strings.ToUpper(s) {
	case "B3":
		return PropagationB3, nil
	case "W3C":
		return PropagationW3C, nil
	default:
		return "", fmt.Errorf("unknown propagation type %q (valid: B3, W3C)", s)
	}
}

// newBasePropagator returns the undecorated propagator for the given format.
func newBasePropagator(t PropagationType) propagation.TextMapPropagator {
	switch t {
	case PropagationB3:
		return b3.New(b3.WithInjectEncoding(b3.B3SingleHeader))
	default:
		return propagation.TraceContext{}
	}
}

// remoteBaggagePropagator carries a configured set of baggage fields across
// the wire. Injection is restricted to the allowed field names so locally
// scoped baggage never leaks to downstream services; extraction accepts
// whatever the upstream sent.
type remoteBaggagePropagator struct {
	delegate propagation.TextMapPropagator
	allowed  map[string]bool
}

func newRemoteBaggagePropagator(fields []string) remoteBaggagePropagator {
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	return remoteBaggagePropagator{delegate: propagation.Baggage{}, allowed: allowed}
}

// Inject writes the allowed baggage members to the carrier.
func (p remoteBaggagePropagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	bag := baggage.FromContext(ctx)
	if bag.Len() == 0 {
		return
	}

	members := make([]baggage.Member, 0, bag.Len())
	for _, m := range bag.Members() {
		if p.allowed[m.Key()] {
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		return
	}

	filtered, err := baggage.New(members...)
	if err != nil {
		return
	}
	p.delegate.Inject(baggage.ContextWithBaggage(ctx, filtered), carrier)
}

// Extract reads baggage from the carrier into the context.
func (p remoteBaggagePropagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return p.delegate.Extract(ctx, carrier)
}

// Fields returns the header names this propagator writes.
func (p remoteBaggagePropagator) Fields() []string {
	return p.delegate.Fields()
}

// Extract extracts trace context (and baggage, when enabled) from HTTP
// headers and returns a context carrying it. Called on the server side when
// receiving a request.
func (t *Tracing) Extract(ctx context.Context, headers http.Header) context.Context {
	return t.propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject injects trace context (and allowed baggage) into HTTP headers.
// Called on the client side before sending a request.
func (t *Tracing) Inject(ctx context.Context, headers http.Header) {
	t.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractFromMap extracts trace context from a string map, for non-HTTP
// carriers such as message headers.
func (t *Tracing) ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return t.propagator.Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap injects trace context into a string map.
func (t *Tracing) InjectToMap(ctx context.Context, carrier map[string]string) {
	t.propagator.Inject(ctx, propagation.MapCarrier(carrier))
}
