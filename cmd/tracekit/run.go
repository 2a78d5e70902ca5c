package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mantlehq/tracekit/pkg/config"
	"mantlehq/tracekit/pkg/telemetry/logging"
	"mantlehq/tracekit/pkg/telemetry/metrics"
	"mantlehq/tracekit/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the traced demo service",
	Long: `Start a small HTTP service with the full tracing pipeline assembled
from the configuration file.

Examples:
  # Start with default config
  tracekit run

  # Start with custom config
  tracekit run --config /etc/tracekit/config.yaml

  # Override listen address
  tracekit run --listen 0.0.0.0:8080

  # Validate config without starting
  tracekit run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", ":8080", "listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(cfg.Logging, nil)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pipeline *metrics.Pipeline
	if cfg.Metrics.IsEnabled() {
		pipeline = metrics.NewPipeline(&cfg.Metrics, nil)
	}

	boot, err := tracing.NewBootstrap(cfg, logger, pipeline)
	if err != nil {
		return err
	}
	tr, err := boot.Configure(ctx)
	if err != nil {
		return fmt.Errorf("failed to configure tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tr.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	logger.Info("tracing configured",
		"service", tr.ServiceName(),
		"enabled", tr.Enabled(),
		"propagation", cfg.Tracing.Propagation,
		"sampling_probability", cfg.Tracing.Sampling.Value(),
	)

	// Report configuration drift; the pipeline itself is immutable once built.
	watcher, err := config.NewWatcher(cfgFile, logger.Slog())
	if err != nil {
		logger.Warn("configuration watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	tenant := tracing.NewField("tenant-id")

	traced := boot.HTTPTracing().ServerHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "handling request", "path", r.URL.Path)
		fmt.Fprintf(w, "service=%s tenant=%s\n", tr.ServiceName(), tenant.Value(r.Context()))
	}))

	mux := http.NewServeMux()
	mux.Handle("/", traced)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if pipeline != nil {
		mux.Handle("/metrics", pipeline.Handler())
	}

	srv := &http.Server{
		Addr:              runFlags.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", runFlags.listenAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
