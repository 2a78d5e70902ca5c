package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that behavior.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// TRACEKIT_SECTION_FIELD (e.g. TRACEKIT_TRACING_PROPAGATION) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// Overrides may have introduced invalid values; validate again.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TRACEKIT_* environment variables to the
// configuration. Unparseable values are ignored in favor of the file value;
// validation of the merged result happens in the caller.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("TRACEKIT_SERVICE_NAME"); ok {
		cfg.ServiceName = v
	}

	if v, ok := lookupBool("TRACEKIT_TRACING_ENABLED"); ok {
		cfg.Tracing.Enabled = boolPtr(v)
	}
	if v, ok := os.LookupEnv("TRACEKIT_TRACING_PROPAGATION"); ok {
		cfg.Tracing.Propagation = v
	}
	if v, ok := os.LookupEnv("TRACEKIT_TRACING_SAMPLING_PROBABILITY"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.Sampling.Probability = floatPtr(f)
		}
	}

	if v, ok := lookupBool("TRACEKIT_TRACING_BAGGAGE_ENABLED"); ok {
		cfg.Tracing.Baggage.Enabled = boolPtr(v)
	}
	if v, ok := os.LookupEnv("TRACEKIT_TRACING_BAGGAGE_REMOTE_FIELDS"); ok {
		cfg.Tracing.Baggage.RemoteFields = splitList(v)
	}
	if v, ok := lookupBool("TRACEKIT_TRACING_BAGGAGE_CORRELATION_ENABLED"); ok {
		cfg.Tracing.Baggage.Correlation.Enabled = boolPtr(v)
	}
	if v, ok := os.LookupEnv("TRACEKIT_TRACING_BAGGAGE_CORRELATION_FIELDS"); ok {
		cfg.Tracing.Baggage.Correlation.Fields = splitList(v)
	}

	if v, ok := lookupBool("TRACEKIT_TRACING_EXPORTER_ENABLED"); ok {
		cfg.Tracing.Exporter.Enabled = v
	}
	if v, ok := os.LookupEnv("TRACEKIT_TRACING_EXPORTER_ENDPOINT"); ok {
		cfg.Tracing.Exporter.Endpoint = v
	}
	if v, ok := lookupBool("TRACEKIT_TRACING_EXPORTER_INSECURE"); ok {
		cfg.Tracing.Exporter.Insecure = boolPtr(v)
	}

	if v, ok := os.LookupEnv("TRACEKIT_LOGGING_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("TRACEKIT_LOGGING_FORMAT"); ok {
		cfg.Logging.Format = v
	}

	if v, ok := lookupBool("TRACEKIT_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = boolPtr(v)
	}
	if v, ok := os.LookupEnv("TRACEKIT_METRICS_NAMESPACE"); ok {
		cfg.Metrics.Namespace = v
	}
	if v, ok := os.LookupEnv("TRACEKIT_METRICS_SUBSYSTEM"); ok {
		cfg.Metrics.Subsystem = v
	}
}

// lookupBool reads a boolean environment variable. The second return value
// reports whether the variable was set to a parseable boolean.
func lookupBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
