package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jpalmerr/leafpulse/config"
)

// envPrefix namespaces environment overrides: --github-token is
// LEAFPULSE_GITHUB_TOKEN.
const envPrefix = "LEAFPULSE"

const (
	flagConfig      = "config"
	flagGitHubToken = "github-token"
	flagGitHubURL   = "github-url"
	flagDeviceHost  = "device-host"
	flagDevicePort  = "device-port"
	flagDeviceToken = "device-token"
	flagStatusPort  = "status-port"
	flagLogLevel    = "log-level"
)

// overlayFlags are the flags that can override the config file.
var overlayFlags = []string{
	flagGitHubToken,
	flagGitHubURL,
	flagDeviceHost,
	flagDevicePort,
	flagDeviceToken,
	flagStatusPort,
	flagLogLevel,
}

func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringP(flagConfig, "c", "", "path to config file")
	flags.String(flagGitHubToken, "", "GitHub personal access token")
	flags.String(flagGitHubURL, "", "notifications endpoint URL")
	flags.String(flagDeviceHost, "", "Nanoleaf controller host")
	flags.Int(flagDevicePort, 0, "Nanoleaf controller port")
	flags.String(flagDeviceToken, "", "Nanoleaf auth token")
	flags.Int(flagStatusPort, 0, "status server port (0 disables)")
	flags.String(flagLogLevel, "", "log level: debug, info, warn, error")
}

// loadConfig builds the effective configuration: defaults, then the config
// file if one was given, then LEAFPULSE_* environment variables, then flags.
// The result is not validated.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path, _ := cmd.Flags().GetString(flagConfig)
	if path != "" {
		var err error
		cfg, err = config.DecodeFile(path)
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range overlayFlags {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	// flags win over env; viper only reports a flag as set when it was passed
	if v.IsSet(flagGitHubToken) {
		cfg.GitHub.Token = v.GetString(flagGitHubToken)
	}
	if v.IsSet(flagGitHubURL) {
		cfg.GitHub.URL = v.GetString(flagGitHubURL)
	}
	if v.IsSet(flagDeviceHost) {
		cfg.Device.Host = v.GetString(flagDeviceHost)
	}
	if v.IsSet(flagDevicePort) {
		cfg.Device.Port = v.GetInt(flagDevicePort)
	}
	if v.IsSet(flagDeviceToken) {
		cfg.Device.Token = v.GetString(flagDeviceToken)
	}
	if v.IsSet(flagStatusPort) {
		cfg.Status.Port = v.GetInt(flagStatusPort)
	}
	if v.IsSet(flagLogLevel) {
		cfg.LogLevel = v.GetString(flagLogLevel)
	}

	return cfg, nil
}
