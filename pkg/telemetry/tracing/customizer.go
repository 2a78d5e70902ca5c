package tracing

import (
	"fmt"
	"sort"
)

// Customizer mutates a shared builder of type B during startup composition.
// Customizers run sequentially: each one observes the builder state left by
// the customizers before it. A returned error aborts startup — a partially
// customized pipeline is never activated.
type Customizer[B any] func(*B) error

// Customizer aliases for each builder in the pipeline.
type (
	// TracingCustomizer mutates the tracer builder before it is finalized.
	TracingCustomizer = Customizer[TracingBuilder]

	// BaggagePropagationCustomizer mutates the baggage propagation builder,
	// typically to add or remove remote fields.
	BaggagePropagationCustomizer = Customizer[BaggagePropagationBuilder]

	// CorrelationScopeCustomizer mutates the correlation scope decorator
	// builder, typically to add or remove correlation fields.
	CorrelationScopeCustomizer = Customizer[CorrelationScopeDecoratorBuilder]

	// CurrentTraceContextCustomizer mutates the current-trace-context
	// builder before it is finalized.
	CurrentTraceContextCustomizer = Customizer[CurrentTraceContextBuilder]
)

type customizerEntry[B any] struct {
	priority int
	seq      int
	fn       Customizer[B]
}

// CustomizerSet is a priority-ordered collection of customizers for one
// builder type. Iteration order is ascending priority; ties keep registration
// order. Built-in customizers registered by the bootstrap itself sort before
// host customizers of the same priority.
type CustomizerSet[B any] struct {
	entries []customizerEntry[B]
	nextSeq int
}

// Add registers a customizer at the given priority. Lower priorities run
// earlier.
func (s *CustomizerSet[B]) Add(priority int, fn Customizer[B]) {
	s.nextSeq++
	s.entries = append(s.entries, customizerEntry[B]{priority: priority, seq: s.nextSeq, fn: fn})
}

// addBuiltIn registers a bootstrap-supplied customizer that runs before any
// host customizer sharing its priority.
func (s *CustomizerSet[B]) addBuiltIn(priority int, fn Customizer[B]) {
	s.entries = append(s.entries, customizerEntry[B]{priority: priority, seq: -1, fn: fn})
}

// Len returns the number of registered customizers.
func (s *CustomizerSet[B]) Len() int {
	return len(s.entries)
}

// Apply runs every customizer against the builder in priority order. The
// first error stops the run and is returned with its position for
// diagnostics.
func (s *CustomizerSet[B]) Apply(b *B) error {
	ordered := make([]customizerEntry[B], len(s.entries))
	copy(ordered, s.entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].seq < ordered[j].seq
	})

	for i, entry := range ordered {
		if err := entry.fn(b); err != nil {
			return fmt.Errorf("customizer %d (priority %d) failed: %w", i, entry.priority, err)
		}
	}
	return nil
}

// clone returns an independent copy so Configure can mix in built-in
// customizers without mutating the host-registered set.
func (s *CustomizerSet[B]) clone() CustomizerSet[B] {
	entries := make([]customizerEntry[B], len(s.entries))
	copy(entries, s.entries)
	return CustomizerSet[B]{entries: entries, nextSeq: s.nextSeq}
}

// prioritized is an ordered list of extension-point registrations (span
// predicates, filters, reporters, processors). Each registration declares an
// explicit priority; sorted() returns ascending priority with registration
// order breaking ties.
type prioritized[T any] struct {
	items []prioritizedItem[T]
}

type prioritizedItem[T any] struct {
	priority int
	seq      int
	value    T
}

func (p *prioritized[T]) add(priority int, v T) {
	p.items = append(p.items, prioritizedItem[T]{priority: priority, seq: len(p.items), value: v})
}

func (p *prioritized[T]) sorted() []T {
	ordered := make([]prioritizedItem[T], len(p.items))
	copy(ordered, p.items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].seq < ordered[j].seq
	})

	out := make([]T, len(ordered))
	for i, item := range ordered {
		out[i] = item.value
	}
	return out
}
