package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/leafpulse/config"
)

// newInfoCmd prints the controller description and panel layout.
func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the panel layout",
		Long: `Fetch the Nanoleaf controller description and print its panel layout.

Example:
  leafpulse info -c config.yaml
  leafpulse info -c config.yaml --json`,
		RunE: runInfo,
	}
	cmd.Flags().Bool("json", false, "print the raw device description as JSON")
	return cmd
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Device.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client, err := config.DeviceClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create device client: %w", err)
	}

	info, err := client.Info(cmd.Context())
	if err != nil {
		return fmt.Errorf("device unreachable: %w", err)
	}

	// the description can lag behind the controller; ask for the live effect
	effect, err := client.SelectedEffect(cmd.Context())
	if err != nil {
		effect = info.Effects.Select
	}
	info.Effects.Select = effect

	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	panels := info.PanelLayout.Layout.PositionData

	_, _ = fmt.Fprintf(out, "%s (%s)\n", info.Name, info.Model)
	_, _ = fmt.Fprintf(out, "  Serial:   %s\n", info.SerialNo)
	_, _ = fmt.Fprintf(out, "  Firmware: %s\n", info.FirmwareVersion)
	_, _ = fmt.Fprintf(out, "  Effect:   %s\n", effect)
	_, _ = fmt.Fprintf(out, "  Panels:   %d\n\n", len(panels))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tX\tY\tO\tSHAPE")
	for _, p := range panels {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.PanelID, p.X, p.Y, p.O, p.ShapeType)
	}
	return tw.Flush()
}
