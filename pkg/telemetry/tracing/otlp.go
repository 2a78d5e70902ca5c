package tracing

import (
	"context"
	"fmt"
	"time"

	"mantlehq/tracekit/pkg/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// OTLPReporter is the default span sink: a SpanReporter backed by the OTLP
// gRPC exporter. The bootstrap registers it at a late priority when the
// exporter is enabled in configuration, so host reporters observe spans
// before it ships them.
type OTLPReporter struct {
	exporter *otlptrace.Exporter
	timeout  time.Duration
}

// NewOTLPReporter creates a reporter for the configured collector endpoint.
func NewOTLPReporter(ctx context.Context, cfg config.ExporterConfig) (*OTLPReporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.IsInsecure() {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultExporterTimeout
	}
	opts = append(opts, otlptracegrpc.WithTimeout(timeout))

	client := otlptracegrpc.NewClient(opts...)
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return &OTLPReporter{exporter: exporter, timeout: timeout}, nil
}

// Report implements SpanReporter.
func (r *OTLPReporter) Report(span sdktrace.ReadOnlySpan) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.exporter.ExportSpans(ctx, []sdktrace.ReadOnlySpan{span})
}

// Shutdown stops the exporter. The composite handler forwards its own
// Shutdown here when the provider stops.
func (r *OTLPReporter) Shutdown(ctx context.Context) error {
	return r.exporter.Shutdown(ctx)
}
