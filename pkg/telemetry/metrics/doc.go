// Package metrics provides Prometheus metrics for the tracekit span pipeline.
//
// Three series are exposed, all under the configured namespace/subsystem
// (default tracekit_tracing):
//
//   - spans_processed_total{result}: spans finishing the composite span
//     handler, labeled exported, dropped_predicate, or dropped_filter.
//   - handler_failures_total{kind}: predicate/filter/reporter failures that
//     the composite handler isolated so the rest of the chain kept running.
//   - sampling_probability: the configured sampling probability.
package metrics
