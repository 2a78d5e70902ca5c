// Package logging provides structured logging for tracekit with automatic
// trace correlation.
//
// The Logger wraps log/slog. Its *Context methods enrich every record with
// the active trace id and span id, plus every field in the ambient
// CorrelationContext — the per-request mutable field map that the tracing
// package's correlation scope decorator installs when a trace scope is
// entered. Correlation fields are read at log time, so baggage fields
// configured with flush-on-update semantics appear in the very next log
// statement after a change.
//
//	logger, _ := logging.New(cfg.Logging, os.Stdout)
//	logger.InfoContext(ctx, "charge submitted", "amount_cents", 1299)
//	// {"msg":"charge submitted","trace_id":"4bf9...","tenant-id":"acme","amount_cents":1299}
package logging
