package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/leafpulse/config"
)

// newAlertCmd flashes the panels once.
func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Flash the panels once",
		Long: `Show the configured alert on the Nanoleaf panels once, without polling
GitHub. Useful for trying out alert colours and durations.

Example:
  leafpulse alert -c config.yaml
  leafpulse alert --device-host 192.168.1.40 --device-token abc
  leafpulse alert -c config.yaml --power-on`,
		RunE: runAlert,
	}
	cmd.Flags().Bool("power-on", false, "switch the panels on before flashing")
	return cmd
}

func runAlert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Device.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Alert.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client, alerter, err := config.BuildAlerter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create device client: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Alert.Timeout.Duration())
	defer cancel()

	if powerOn, _ := cmd.Flags().GetBool("power-on"); powerOn {
		if err := client.SetPower(ctx, true); err != nil {
			return fmt.Errorf("failed to switch panels on: %w", err)
		}
	}

	if err := alerter.TriggerAlert(ctx); err != nil {
		return fmt.Errorf("alert failed: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Alert sent to %s:%d (%s)\n",
		cfg.Device.Host, cfg.Device.Port, cfg.Alert.Duration.Duration())
	return nil
}
