package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/leafpulse/config"
	"github.com/jpalmerr/leafpulse/internal/poller"
)

// newCheckCmd polls the notifications API once.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Poll GitHub once and print the result",
		Long: `Poll the GitHub notifications API once and print the number of unread
notifications and the server's poll interval. The panels are not touched,
so only the github section of the config is required.

Example:
  leafpulse check -c config.yaml
  LEAFPULSE_GITHUB_TOKEN=ghp_... leafpulse check`,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.GitHub.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client, err := poller.NewClient(config.ClientConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	outcome, err := client.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("check failed (%s): %w", poller.ErrorKind(err), err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Notifications: %d\n", outcome.Count)
	_, _ = fmt.Fprintf(out, "  Status:      %d\n", outcome.StatusCode)
	_, _ = fmt.Fprintf(out, "  Next poll:   %s\n", outcome.NextInterval)

	return nil
}
