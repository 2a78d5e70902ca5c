package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g. "tracing.sampling.probability").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to all
// field errors so startup failures report every problem at once.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned
// together; tracekit never silently corrects an invalid value.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTracing(&cfg.Tracing)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	switch strings.ToUpper(cfg.Propagation) {
	case "B3", "W3C":
	default:
		errs = append(errs, FieldError{
			Field:   "tracing.propagation",
			Message: fmt.Sprintf("unknown propagation type %q (valid: B3, W3C)", cfg.Propagation),
		})
	}

	if p := cfg.Sampling.Value(); p < 0.0 || p > 1.0 {
		errs = append(errs, FieldError{
			Field:   "tracing.sampling.probability",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", p),
		})
	}

	errs = append(errs, validateFieldNames("tracing.baggage.remote_fields", cfg.Baggage.RemoteFields)...)
	errs = append(errs, validateFieldNames("tracing.baggage.correlation.fields", cfg.Baggage.Correlation.Fields)...)

	if cfg.Exporter.Enabled && cfg.Exporter.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "tracing.exporter.endpoint",
			Message: "must be set when the exporter is enabled",
		})
	}
	if cfg.Exporter.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "tracing.exporter.timeout",
			Message: "must not be negative",
		})
	}

	return errs
}

// validateFieldNames rejects empty and duplicate baggage field names.
// Duplicate names would make customizer ordering ambiguous.
func validateFieldNames(field string, names []string) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "field name must not be empty",
			})
			continue
		}
		if seen[name] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("duplicate field name %q", name),
			})
		}
		seen[name] = true
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown log level %q (valid: debug, info, warn, error)", cfg.Level),
		})
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown log format %q (valid: json, text)", cfg.Format),
		})
	}

	return errs
}
