package config

import "time"

// Config is the root configuration for the tracekit bootstrap. It is loaded
// once at process startup and treated as immutable afterwards; the assembled
// tracing pipeline is never rebuilt from a changed configuration.
type Config struct {
	// ServiceName is the logical service name reported on every span.
	// When empty, the tracer falls back to the literal "application".
	ServiceName string `yaml:"service_name"`

	// Tracing contains the tracing pipeline configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Logging contains the structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains the Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether the tracing pipeline is constructed at all.
	// When false, none of the tracing subsystem is built.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Propagation selects the trace context header format.
	// Options: "B3" (single-header), "W3C" (traceparent/tracestate).
	// Default: "W3C"
	Propagation string `yaml:"propagation"`

	// Sampling configures the probability sampler.
	Sampling SamplingConfig `yaml:"sampling"`

	// Baggage configures baggage propagation and log correlation.
	Baggage BaggageConfig `yaml:"baggage"`

	// Exporter configures the default OTLP span reporter.
	Exporter ExporterConfig `yaml:"exporter"`
}

// IsEnabled reports whether tracing is enabled, defaulting to true when the
// flag is absent from the configuration file.
func (c *TracingConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// SamplingConfig configures the trace sampling policy.
type SamplingConfig struct {
	// Probability is the fraction of root traces to sample, in [0.0, 1.0].
	// Values outside the range are a startup error, never clamped.
	// Default: 0.1
	Probability *float64 `yaml:"probability"`
}

// Value returns the configured probability, or the default when unset.
func (c *SamplingConfig) Value() float64 {
	if c.Probability == nil {
		return DefaultSamplingProbability
	}
	return *c.Probability
}

// BaggageConfig configures baggage propagation across process boundaries.
type BaggageConfig struct {
	// Enabled controls whether the chosen propagation format is wrapped with
	// a baggage-carrying decorator.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// RemoteFields lists the baggage field names serialized on the wire.
	RemoteFields []string `yaml:"remote_fields"`

	// Correlation configures mirroring of baggage values into the ambient
	// logging context.
	Correlation CorrelationConfig `yaml:"correlation"`
}

// IsEnabled reports whether baggage propagation is enabled, defaulting to true.
func (c *BaggageConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CorrelationConfig configures baggage-to-log correlation.
type CorrelationConfig struct {
	// Enabled gates the built-in correlation field customizer.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Fields lists the baggage field names mirrored into the logging
	// context. Changes to these fields are flushed to the logging context
	// immediately rather than at the next scope boundary.
	Fields []string `yaml:"fields"`
}

// IsEnabled reports whether correlation is enabled, defaulting to true.
func (c *CorrelationConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ExporterConfig configures the default OTLP gRPC span reporter. The reporter
// is only constructed when Enabled is true; hosts that register their own
// reporters typically leave it off.
type ExporterConfig struct {
	// Enabled controls whether the default OTLP reporter is constructed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure *bool `yaml:"insecure"`

	// Timeout is the per-export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// IsInsecure reports whether the OTLP connection skips TLS, defaulting to true.
func (c *ExporterConfig) IsInsecure() bool {
	return c.Insecure == nil || *c.Insecure
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether pipeline metrics are registered.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "tracekit"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "tracing"
	Subsystem string `yaml:"subsystem"`
}

// IsEnabled reports whether metrics are enabled, defaulting to true.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
