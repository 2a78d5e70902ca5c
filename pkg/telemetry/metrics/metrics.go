package metrics

import (
	"mantlehq/tracekit/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Span processing results recorded by the pipeline.
const (
	ResultExported         = "exported"
	ResultDroppedPredicate = "dropped_predicate"
	ResultDroppedFilter    = "dropped_filter"
)

// Span handler kinds recorded on failure counters.
const (
	HandlerPredicate = "predicate"
	HandlerFilter    = "filter"
	HandlerReporter  = "reporter"
)

// Pipeline tracks metrics for the span processing pipeline: how many spans
// pass through the composite handler, how they are disposed of, and which
// handlers fail while processing them.
type Pipeline struct {
	registry *prometheus.Registry

	// Spans finishing the composite handler, labeled by disposition.
	spansProcessed *prometheus.CounterVec

	// Individual handler failures; a failing handler never blocks the rest
	// of the chain, so this counter is the only trace it leaves besides the
	// operational log.
	handlerFailures *prometheus.CounterVec

	// Pipeline configuration surfaced for dashboards.
	samplingProbability prometheus.Gauge
}

// NewPipeline creates pipeline metrics registered against the given registry.
// If registry is nil a new one is created.
func NewPipeline(cfg *config.MetricsConfig, registry *prometheus.Registry) *Pipeline {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}
	subsystem := cfg.Subsystem
	if subsystem == "" {
		subsystem = config.DefaultMetricsSubsystem
	}

	p := &Pipeline{
		registry: registry,

		spansProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "spans_processed_total",
				Help:      "Spans processed by the composite span handler, by disposition",
			},
			[]string{"result"},
		),

		handlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "handler_failures_total",
				Help:      "Span handler failures isolated by the composite handler",
			},
			[]string{"kind"},
		),

		samplingProbability: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sampling_probability",
				Help:      "Configured trace sampling probability",
			},
		),
	}

	registry.MustRegister(p.spansProcessed, p.handlerFailures, p.samplingProbability)

	return p
}

// Registry returns the Prometheus registry backing these metrics.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// RecordSpan records the disposition of one finished span.
func (p *Pipeline) RecordSpan(result string) {
	p.spansProcessed.WithLabelValues(result).Inc()
}

// RecordHandlerFailure records an isolated span handler failure.
func (p *Pipeline) RecordHandlerFailure(kind string) {
	p.handlerFailures.WithLabelValues(kind).Inc()
}

// SetSamplingProbability publishes the configured sampling probability.
func (p *Pipeline) SetSamplingProbability(probability float64) {
	p.samplingProbability.Set(probability)
}
