// Package main is the entry point for the leafpulse CLI.
//
// leafpulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	leafpulse run -c config.yaml      # Poll and flash the panels
//	leafpulse validate -c config.yaml # Validate configuration
//	leafpulse check -c config.yaml    # Poll once and print the result
//	leafpulse alert -c config.yaml    # Flash the panels once
//	leafpulse info -c config.yaml     # Show the panel layout
//	leafpulse version                 # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. It just displays help when called
// without subcommands.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leafpulse",
		Short: "Flash Nanoleaf panels while GitHub notifications are unread",
		Long: `leafpulse polls the GitHub notifications API and flashes Nanoleaf light
panels while you have unread notifications.

It uses conditional requests and honours the X-Poll-Interval header, so it
stays well inside the API rate limits.

Quick start:
  1. Create a config file (leafpulse.yaml)
  2. Run: leafpulse run -c leafpulse.yaml

Example config:
  github:
    token: ${GITHUB_TOKEN}
  device:
    host: 192.168.1.40
    token: ${NANOLEAF_TOKEN}

Every value under github and device can also come from flags or from
LEAFPULSE_* environment variables, e.g. LEAFPULSE_GITHUB_TOKEN.`,
		SilenceUsage: true,
	}

	addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newValidateCmd(),
		newCheckCmd(),
		newAlertCmd(),
		newInfoCmd(),
	)

	return rootCmd
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newVersionCmd prints version information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this leafpulse binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "leafpulse %s\n", version)
			_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
			_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
