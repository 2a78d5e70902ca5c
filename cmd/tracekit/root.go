package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tracekit",
	Short: "Tracekit - distributed tracing bootstrap toolkit",
	Long: `Tracekit assembles an OpenTelemetry tracing pipeline from configuration:
propagation format (B3 or W3C), baggage and log correlation, probability
sampling, and an extensible span handler chain.

This binary runs a small traced HTTP service demonstrating the pipeline,
with Prometheus metrics and configuration drift detection.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
