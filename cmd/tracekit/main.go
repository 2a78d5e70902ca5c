// Tracekit is a demonstration service for the tracekit tracing toolkit.
//
// It wires the full pipeline — propagation, baggage, sampling, span handlers,
// log correlation, and metrics — into a small HTTP service, driven by a YAML
// configuration file with environment overrides.
//
// Usage:
//
//	# Start with default configuration
//	tracekit run
//
//	# Start with a custom configuration file
//	tracekit run --config /etc/tracekit/config.yaml
//
//	# Validate a configuration file without starting
//	tracekit validate --config config.yaml
//
//	# Show version information
//	tracekit version
package main

func main() {
	Execute()
}
