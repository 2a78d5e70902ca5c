package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mantlehq/tracekit/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file, including environment variable
overrides, without starting the service.

Every problem in the file is reported, not only the first one.

Examples:
  tracekit validate --config config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ %s is invalid:\n", cfgFile)
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
			}
			return errors.New("configuration invalid")
		}
		return err
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	if verbose {
		fmt.Printf("  service_name: %s\n", cfg.ServiceName)
		fmt.Printf("  tracing: enabled=%t propagation=%s probability=%g\n",
			cfg.Tracing.IsEnabled(), cfg.Tracing.Propagation, cfg.Tracing.Sampling.Value())
		fmt.Printf("  baggage: enabled=%t remote_fields=%v\n",
			cfg.Tracing.Baggage.IsEnabled(), cfg.Tracing.Baggage.RemoteFields)
		fmt.Printf("  exporter: enabled=%t endpoint=%s\n",
			cfg.Tracing.Exporter.Enabled, cfg.Tracing.Exporter.Endpoint)
	}
	return nil
}
