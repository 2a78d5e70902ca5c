// Package telemetry groups the observability building blocks of tracekit.
//
// # Components
//
//   - registry: default-if-absent slots for pipeline roles
//   - tracing: OpenTelemetry pipeline assembly (propagation, baggage,
//     sampling, span handlers)
//   - logging: structured logging with trace and correlation enrichment
//   - metrics: Prometheus metrics for the span handler chain
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("tracekit.yaml")
//	logger, _ := logging.New(cfg.Logging, nil)
//	pipeline := metrics.NewPipeline(&cfg.Metrics, nil)
//
//	boot, _ := tracing.NewBootstrap(cfg, logger, pipeline)
//	t, err := boot.Configure(ctx)
//	defer t.Shutdown(context.Background())
//
//	ctx, span := t.Start(ctx, "operation")
//	defer span.End()
//	logger.InfoContext(ctx, "operation started")
package telemetry
