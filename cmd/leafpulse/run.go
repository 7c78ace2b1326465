package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/leafpulse"
	"github.com/jpalmerr/leafpulse/config"
	"github.com/jpalmerr/leafpulse/internal/nanoleaf"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newRunCmd starts polling and flashing.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll GitHub and flash the panels",
		Long: `Poll the GitHub notifications API and flash the Nanoleaf panels while
notifications are unread.

On start the command:
  - Loads configuration from the YAML file, environment and flags
  - Fetches the panel layout (exits if the controller is unreachable)
  - Flashes the panels once so you can see the device respond
  - Starts polling, and the status server if status.port is set

The command runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  leafpulse run -c config.yaml
  LEAFPULSE_GITHUB_TOKEN=ghp_... leafpulse run --device-host 192.168.1.40 --device-token abc`,
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())

	client, alerter, err := config.BuildAlerter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create device client: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := greetDevice(ctx, client, alerter, cfg.Alert.Timeout.Duration(), logger); err != nil {
		return err
	}

	n, err := leafpulse.New(config.BuildOptions(cfg, alerter, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	logger.Info("starting notifier",
		"url", n.URL(),
		"fallback_interval", n.FallbackInterval().String(),
		"status_port", n.StatusPort(),
	)

	// start notifier - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Start(ctx)
	}()

	// wait for notifier to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("notifier error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("notifier error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// greetDevice checks the controller is reachable, logs its layout and shows
// one flash. An unreachable controller is fatal; a failed flash is not.
func greetDevice(ctx context.Context, client *nanoleaf.Client, alerter *nanoleaf.Alerter, timeout time.Duration, logger *slog.Logger) error {
	info, err := client.Info(ctx)
	if err != nil {
		return fmt.Errorf("device unreachable: %w", err)
	}

	panels := info.PanelLayout.Layout.PositionData
	logger.Info("device connected",
		"name", info.Name,
		"model", info.Model,
		"firmware", info.FirmwareVersion,
		"panel_count", len(panels),
	)
	for _, p := range panels {
		logger.Debug("panel",
			"panel_id", p.PanelID.String(),
			"x", p.X.String(),
			"y", p.Y.String(),
			"o", p.O.String(),
			"shape", p.ShapeType.String(),
		)
	}

	alertCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := alerter.TriggerAlert(alertCtx); err != nil {
		logger.Warn("startup flash failed", "error", err.Error())
	}
	return nil
}
