package config

import "time"

// Default values for configuration fields.
const (
	// Tracing defaults
	DefaultTracingEnabled      = true
	DefaultPropagation         = "W3C"
	DefaultSamplingProbability = 0.1

	// Baggage defaults
	DefaultBaggageEnabled     = true
	DefaultCorrelationEnabled = true

	// Exporter defaults
	DefaultExporterEnabled  = false
	DefaultExporterEndpoint = "localhost:4317"
	DefaultExporterInsecure = true
	DefaultExporterTimeout  = 10 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "tracekit"
	DefaultMetricsSubsystem = "tracing"
)

// ApplyDefaults fills in default values for any configuration fields that
// were not set. Boolean flags that default to true use pointer fields so an
// explicit "false" in the file survives this pass.
func ApplyDefaults(cfg *Config) {
	// Tracing defaults
	if cfg.Tracing.Enabled == nil {
		cfg.Tracing.Enabled = boolPtr(DefaultTracingEnabled)
	}
	if cfg.Tracing.Propagation == "" {
		cfg.Tracing.Propagation = DefaultPropagation
	}
	if cfg.Tracing.Sampling.Probability == nil {
		cfg.Tracing.Sampling.Probability = floatPtr(DefaultSamplingProbability)
	}

	// Baggage defaults
	if cfg.Tracing.Baggage.Enabled == nil {
		cfg.Tracing.Baggage.Enabled = boolPtr(DefaultBaggageEnabled)
	}
	if cfg.Tracing.Baggage.Correlation.Enabled == nil {
		cfg.Tracing.Baggage.Correlation.Enabled = boolPtr(DefaultCorrelationEnabled)
	}

	// Exporter defaults
	if cfg.Tracing.Exporter.Endpoint == "" {
		cfg.Tracing.Exporter.Endpoint = DefaultExporterEndpoint
	}
	if cfg.Tracing.Exporter.Insecure == nil {
		cfg.Tracing.Exporter.Insecure = boolPtr(DefaultExporterInsecure)
	}
	if cfg.Tracing.Exporter.Timeout == 0 {
		cfg.Tracing.Exporter.Timeout = DefaultExporterTimeout
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if cfg.Metrics.Enabled == nil {
		cfg.Metrics.Enabled = boolPtr(DefaultMetricsEnabled)
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}

// NewDefault returns a configuration with every default applied. Useful for
// hosts that configure programmatically instead of from a file.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
