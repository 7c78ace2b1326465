package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// newValidateCmd validates a config file without starting the notifier.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long: `Validate a leafpulse configuration file without contacting GitHub or the
panels.

This command parses the YAML, expands environment variables, applies
LEAFPULSE_* environment and flag overrides, and validates all fields.
It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  leafpulse validate -c config.yaml
  leafpulse validate --config /etc/leafpulse/config.yaml`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	if path, _ := cmd.Flags().GetString(flagConfig); path == "" {
		return errors.New("--config is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	statusServer := "disabled"
	if cfg.Status.Port > 0 {
		statusServer = fmt.Sprintf("port %d", cfg.Status.Port)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config is valid!\n")
	_, _ = fmt.Fprintf(out, "  Notifications:     %s\n", cfg.GitHub.URL)
	_, _ = fmt.Fprintf(out, "  Fallback interval: %s\n", cfg.FallbackInterval.Duration())
	_, _ = fmt.Fprintf(out, "  Max response size: %s\n", cfg.GitHub.MaxResponseSize)
	_, _ = fmt.Fprintf(out, "  Device:            %s:%d\n", cfg.Device.Host, cfg.Device.Port)
	_, _ = fmt.Fprintf(out, "  Alert:             %s %s hsb(%d,%d,%d)\n",
		cfg.Alert.Duration.Duration(), cfg.Alert.AnimType,
		cfg.Alert.Hue, cfg.Alert.Saturation, cfg.Alert.Brightness)
	_, _ = fmt.Fprintf(out, "  Status server:     %s\n", statusServer)

	return nil
}
