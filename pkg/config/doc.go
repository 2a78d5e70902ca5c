// Package config provides configuration loading and validation for tracekit.
//
// Configuration is read once at process startup from a YAML file, with
// TRACEKIT_* environment variable overrides, defaults, and collected
// validation errors. The resulting Config is treated as immutable: the
// assembled tracing pipeline is never rebuilt from a changed file. A Watcher
// can observe the file after startup and report drift so operators know a
// restart is needed.
//
// # Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("tracekit.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File format
//
//	service_name: checkout
//	tracing:
//	  enabled: true
//	  propagation: W3C        # or B3
//	  sampling:
//	    probability: 0.1
//	  baggage:
//	    enabled: true
//	    remote_fields: [tenant-id]
//	    correlation:
//	      enabled: true
//	      fields: [tenant-id]
//	  exporter:
//	    enabled: true
//	    endpoint: localhost:4317
//	logging:
//	  level: info
//	  format: json
//
// # Validation
//
// Invalid values (an out-of-range sampling probability, an unknown
// propagation type, empty or duplicate baggage field names) abort startup
// with a ValidationError listing every problem; they are never silently
// corrected or clamped.
package config
