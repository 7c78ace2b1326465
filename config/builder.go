package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/leafpulse"
	"github.com/jpalmerr/leafpulse/internal/nanoleaf"
	"github.com/jpalmerr/leafpulse/internal/poller"
)

// BuildOptions converts parsed configuration into SDK options.
//
// sink is the alert target, usually from [BuildAlerter]. logger may be nil.
func BuildOptions(cfg *Config, sink leafpulse.AlertSink, logger *slog.Logger) []leafpulse.Option {
	opts := []leafpulse.Option{
		leafpulse.WithToken(cfg.GitHub.Token),
		leafpulse.WithNotificationsURL(cfg.GitHub.URL),
		leafpulse.WithUserAgent(cfg.GitHub.UserAgent),
		leafpulse.WithRequestTimeout(cfg.GitHub.Timeout.Duration()),
		leafpulse.WithFallbackInterval(cfg.FallbackInterval.Duration()),
		leafpulse.WithMaxResponseSize(cfg.GitHub.MaxResponseSize.Bytes()),
		leafpulse.WithAlertSink(sink),
		leafpulse.WithAlertTimeout(cfg.Alert.Timeout.Duration()),
		leafpulse.WithStatusPort(cfg.Status.Port),
	}
	if logger != nil {
		opts = append(opts, leafpulse.WithLogger(logger))
	}
	return opts
}

// ClientConfig converts the github section to a poller client config.
func ClientConfig(cfg *Config) poller.ClientConfig {
	return poller.ClientConfig{
		URL:              cfg.GitHub.URL,
		Token:            cfg.GitHub.Token,
		UserAgent:        cfg.GitHub.UserAgent,
		Timeout:          cfg.GitHub.Timeout.Duration(),
		FallbackInterval: cfg.FallbackInterval.Duration(),
		MaxBodySize:      cfg.GitHub.MaxResponseSize.Bytes(),
	}
}

// DeviceClient builds the Nanoleaf client described by cfg.Device.
func DeviceClient(cfg *Config) (*nanoleaf.Client, error) {
	client, err := nanoleaf.NewClient(nanoleaf.Config{
		Host:    cfg.Device.Host,
		Port:    cfg.Device.Port,
		Token:   cfg.Device.Token,
		Timeout: cfg.Device.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	return client, nil
}

// Flash converts the alert section to a Nanoleaf flash.
func Flash(cfg *Config) nanoleaf.Flash {
	return nanoleaf.Flash{
		Duration: cfg.Alert.Duration.Duration(),
		Color: nanoleaf.HSB{
			Hue:        cfg.Alert.Hue,
			Saturation: cfg.Alert.Saturation,
			Brightness: cfg.Alert.Brightness,
		},
		Anim: nanoleaf.AnimType(cfg.Alert.AnimType),
	}
}

// BuildAlerter returns the device client and the alert sink built on it.
func BuildAlerter(cfg *Config) (*nanoleaf.Client, *nanoleaf.Alerter, error) {
	client, err := DeviceClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	alerter, err := nanoleaf.NewAlerter(client, Flash(cfg))
	if err != nil {
		return nil, nil, err
	}
	return client, alerter, nil
}
