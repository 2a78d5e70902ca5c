package tracing

import (
	"context"
	"fmt"

	"mantlehq/tracekit/pkg/telemetry/logging"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Field is a handle to one named baggage field. Fields are cheap values;
// create them freely wherever the name is known.
type Field struct {
	name string
}

// NewField returns a handle for the named baggage field.
func NewField(name string) Field {
	return Field{name: name}
}

// Name returns the field name.
func (f Field) Name() string {
	return f.name
}

// Value returns the field's value in the given context, or "" when unset.
func (f Field) Value(ctx context.Context) string {
	return baggage.FromContext(ctx).Member(f.name).Value()
}

// Set returns a context whose baggage carries the new value. An empty value
// removes the field. If the active trace scope registered this field with
// flush-on-update correlation, the ambient logging context is refreshed
// immediately — the very next log statement sees the new value, without
// waiting for a scope boundary.
func (f Field) Set(ctx context.Context, value string) (context.Context, error) {
	bag := baggage.FromContext(ctx)

	if value == "" {
		bag = bag.DeleteMember(f.name)
	} else {
		member, err := baggage.NewMemberRaw(f.name, value)
		if err != nil {
			return ctx, fmt.Errorf("invalid baggage field %q: %w", f.name, err)
		}
		bag, err = bag.SetMember(member)
		if err != nil {
			return ctx, fmt.Errorf("failed to set baggage field %q: %w", f.name, err)
		}
	}

	ctx = baggage.ContextWithBaggage(ctx, bag)

	if flushFieldsFrom(ctx)[f.name] {
		if cc := logging.CorrelationFrom(ctx); cc != nil {
			cc.Set(f.name, value)
		}
	}

	return ctx, nil
}

type flushFieldsKey struct{}

func withFlushFields(ctx context.Context, fields map[string]bool) context.Context {
	return context.WithValue(ctx, flushFieldsKey{}, fields)
}

func flushFieldsFrom(ctx context.Context) map[string]bool {
	fields, _ := ctx.Value(flushFieldsKey{}).(map[string]bool)
	return fields
}

// BaggagePropagationBuilder accumulates the set of baggage fields serialized
// across process boundaries. The bootstrap seeds it from configuration via a
// built-in customizer at priority 0; host customizers may add or remove
// fields afterwards. Build finalizes it into the wire propagator.
type BaggagePropagationBuilder struct {
	remoteFields []string
}

// NewBaggagePropagationBuilder returns an empty builder.
func NewBaggagePropagationBuilder() *BaggagePropagationBuilder {
	return &BaggagePropagationBuilder{}
}

// AddRemoteField adds a field name to the remote set. Adding a name twice is
// a no-op.
func (b *BaggagePropagationBuilder) AddRemoteField(name string) *BaggagePropagationBuilder {
	for _, f := range b.remoteFields {
		if f == name {
			return b
		}
	}
	b.remoteFields = append(b.remoteFields, name)
	return b
}

// RemoveRemoteField removes a field name from the remote set.
func (b *BaggagePropagationBuilder) RemoveRemoteField(name string) *BaggagePropagationBuilder {
	for i, f := range b.remoteFields {
		if f == name {
			b.remoteFields = append(b.remoteFields[:i], b.remoteFields[i+1:]...)
			return b
		}
	}
	return b
}

// RemoteFields returns a copy of the current remote field set, in the order
// fields were added.
func (b *BaggagePropagationBuilder) RemoteFields() []string {
	out := make([]string, len(b.remoteFields))
	copy(out, b.remoteFields)
	return out
}

// Build wraps the base format propagator with the baggage decorator. The
// wrap happens even with zero remote fields so host code observing the
// propagator sees one stable shape whenever baggage is enabled.
func (b *BaggagePropagationBuilder) Build(base propagation.TextMapPropagator) propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(base, newRemoteBaggagePropagator(b.remoteFields))
}

// CorrelationField configures one baggage field mirrored into the ambient
// logging context.
type CorrelationField struct {
	// Name is the baggage field name; the logging context uses the same key.
	Name string

	// FlushOnUpdate refreshes the logging context copy immediately whenever
	// the baggage value changes, rather than at the next scope boundary.
	FlushOnUpdate bool
}

// CorrelationScopeDecoratorBuilder accumulates the correlation field set.
// The bootstrap seeds it from configuration via a built-in customizer at
// priority 0 (gated on the correlation enabled flag); host customizers run
// afterwards. Build finalizes it into a ScopeDecorator.
type CorrelationScopeDecoratorBuilder struct {
	fields []CorrelationField
}

// NewCorrelationScopeDecoratorBuilder returns an empty builder.
func NewCorrelationScopeDecoratorBuilder() *CorrelationScopeDecoratorBuilder {
	return &CorrelationScopeDecoratorBuilder{}
}

// Add registers a correlation field. Re-adding a name replaces the earlier
// registration so a later customizer can change flush semantics.
func (b *CorrelationScopeDecoratorBuilder) Add(f CorrelationField) *CorrelationScopeDecoratorBuilder {
	for i, existing := range b.fields {
		if existing.Name == f.Name {
			b.fields[i] = f
			return b
		}
	}
	b.fields = append(b.fields, f)
	return b
}

// Remove drops a correlation field by name.
func (b *CorrelationScopeDecoratorBuilder) Remove(name string) *CorrelationScopeDecoratorBuilder {
	for i, f := range b.fields {
		if f.Name == name {
			b.fields = append(b.fields[:i], b.fields[i+1:]...)
			return b
		}
	}
	return b
}

// Fields returns a copy of the registered correlation fields.
func (b *CorrelationScopeDecoratorBuilder) Fields() []CorrelationField {
	out := make([]CorrelationField, len(b.fields))
	copy(out, b.fields)
	return out
}

// Build finalizes the builder into a scope decorator.
func (b *CorrelationScopeDecoratorBuilder) Build() ScopeDecorator {
	fields := make([]CorrelationField, len(b.fields))
	copy(fields, b.fields)
	return &correlationScopeDecorator{fields: fields}
}

// correlationScopeDecorator mirrors configured baggage fields into a fresh
// logging correlation context each time a trace scope is entered. The outer
// scope's correlation context stays attached to the outer context, so
// closing an inner scope naturally restores it.
type correlationScopeDecorator struct {
	fields []CorrelationField
}

func (d *correlationScopeDecorator) DecorateScope(ctx context.Context, _ trace.SpanContext) (context.Context, func()) {
	cc := logging.NewCorrelationContext()
	flush := make(map[string]bool)

	bag := baggage.FromContext(ctx)
	for _, f := range d.fields {
		if v := bag.Member(f.Name).Value(); v != "" {
			cc.Set(f.Name, v)
		}
		if f.FlushOnUpdate {
			flush[f.Name] = true
		}
	}

	ctx = logging.WithCorrelation(ctx, cc)
	ctx = withFlushFields(ctx, flush)
	return ctx, nil
}
