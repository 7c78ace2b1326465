// Package config provides YAML configuration parsing for leafpulse.
//
// This package enables running leafpulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	fallback_interval: 20s
//	log_level: info
//
//	github:
//	  token: ${GITHUB_TOKEN}
//	  max_response_size: 1MB
//
//	device:
//	  host: 192.168.1.40
//	  token: ${NANOLEAF_TOKEN}
//
//	alert:
//	  duration: 5s
//	  hue: 10
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/leafpulse/internal/nanoleaf"
	"github.com/jpalmerr/leafpulse/internal/poller"
)

// minInterval is the minimum allowed fallback interval and request timeout.
// This prevents accidental hammering of the API with overly aggressive polling.
const minInterval = 1 * time.Second

const maxAlertDuration = 60 * time.Second

// Config is the root configuration structure for leafpulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// FallbackInterval is the wait between polls when the API sends no
	// X-Poll-Interval hint, and after a failed poll. Defaults to 20s.
	FallbackInterval Duration `yaml:"fallback_interval"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	GitHub GitHubConfig `yaml:"github"`
	Device DeviceConfig `yaml:"device"`
	Alert  AlertConfig  `yaml:"alert"`
	Status StatusConfig `yaml:"status"`
}

// GitHubConfig configures the notifications poller.
type GitHubConfig struct {
	// Token is a personal access token with the notifications scope.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Token string `yaml:"token"`

	// URL is the notifications endpoint. Defaults to the public GitHub API.
	URL string `yaml:"url"`

	// UserAgent defaults to "leafpulse".
	UserAgent string `yaml:"user_agent"`

	// Timeout bounds one request. Defaults to 30s.
	Timeout Duration `yaml:"timeout"`

	// MaxResponseSize caps the response body, e.g. "512KB". Defaults to 1MB.
	MaxResponseSize Size `yaml:"max_response_size"`
}

// DeviceConfig locates the Nanoleaf controller.
type DeviceConfig struct {
	// Host is the controller's hostname or IP address.
	// Supports environment variable substitution.
	Host string `yaml:"host"`

	// Port defaults to 16021.
	Port int `yaml:"port"`

	// Token is the controller auth token.
	// Supports environment variable substitution.
	Token string `yaml:"token"`

	// Timeout bounds one device request. Defaults to 5s.
	Timeout Duration `yaml:"timeout"`
}

// AlertConfig describes the flash shown while notifications are pending.
type AlertConfig struct {
	// Duration is rounded down to whole seconds. Between 1s and 60s.
	Duration Duration `yaml:"duration"`

	Hue        int `yaml:"hue"`
	Saturation int `yaml:"saturation"`
	Brightness int `yaml:"brightness"`

	// AnimType is a Nanoleaf animation type. Defaults to "solid".
	AnimType string `yaml:"anim_type"`

	// Timeout bounds one alert trigger. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// StatusConfig configures the optional status server.
type StatusConfig struct {
	// Port is the status server port. 0 disables the server.
	Port int `yaml:"port"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Size is a byte count that unmarshals from human-readable strings such as
// "1MB", "512k" or a plain integer. Unit prefixes are binary, so 1MB is 1048576.
type Size int64

// UnmarshalYAML implements yaml.Unmarshaler for Size.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	n, err := ParseSize(raw)
	if err != nil {
		return err
	}
	*s = n
	return nil
}

// Bytes returns the size in bytes.
func (s Size) Bytes() int64 {
	return int64(s)
}

// String formats s with binary units, e.g. "1MiB".
func (s Size) String() string {
	return units.BytesSize(float64(s))
}

// ParseSize parses a human-readable byte size.
func ParseSize(raw string) (Size, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", raw, err)
	}
	return Size(n), nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns a Config with every default applied and no credentials.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	cfg, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeFile reads and decodes a YAML configuration file without
// validating it. See [Decode].
func DecodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Decode(data)
}

// Parse decodes and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	cfg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses YAML configuration data, applies defaults and expands
// environment variables in github.token, github.url, device.host and
// device.token. It does not validate, so callers can overlay flags first.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	expand := []struct {
		field string
		value *string
	}{
		{"github.token", &cfg.GitHub.Token},
		{"github.url", &cfg.GitHub.URL},
		{"device.host", &cfg.Device.Host},
		{"device.token", &cfg.Device.Token},
	}
	for _, e := range expand {
		expanded, err := expandEnvVars(*e.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.field, err)
		}
		*e.value = expanded
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FallbackInterval == 0 {
		c.FallbackInterval = Duration(poller.DefaultFallbackInterval)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.GitHub.URL == "" {
		c.GitHub.URL = poller.DefaultNotificationsURL
	}
	if c.GitHub.UserAgent == "" {
		c.GitHub.UserAgent = poller.DefaultUserAgent
	}
	if c.GitHub.Timeout == 0 {
		c.GitHub.Timeout = Duration(poller.DefaultRequestTimeout)
	}
	if c.GitHub.MaxResponseSize == 0 {
		c.GitHub.MaxResponseSize = Size(poller.DefaultMaxBodySize)
	}

	if c.Device.Port == 0 {
		c.Device.Port = nanoleaf.DefaultPort
	}
	if c.Device.Timeout == 0 {
		c.Device.Timeout = Duration(nanoleaf.DefaultTimeout)
	}

	if c.Alert.Duration == 0 {
		c.Alert.Duration = Duration(nanoleaf.DefaultFlash.Duration)
	}
	if c.Alert.Hue == 0 && c.Alert.Saturation == 0 && c.Alert.Brightness == 0 {
		c.Alert.Hue = nanoleaf.DefaultFlash.Color.Hue
		c.Alert.Saturation = nanoleaf.DefaultFlash.Color.Saturation
		c.Alert.Brightness = nanoleaf.DefaultFlash.Color.Brightness
	}
	if c.Alert.AnimType == "" {
		c.Alert.AnimType = string(nanoleaf.DefaultFlash.Anim)
	}
	if c.Alert.Timeout == 0 {
		c.Alert.Timeout = Duration(poller.DefaultAlertTimeout)
	}
}

// Validate checks every field, returning the first problem found.
func (c *Config) Validate() error {
	if c.FallbackInterval.Duration() < minInterval {
		return fmt.Errorf("fallback_interval must be at least %s, got %s", minInterval, c.FallbackInterval.Duration())
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if err := c.GitHub.Validate(); err != nil {
		return err
	}
	if err := c.Device.Validate(); err != nil {
		return err
	}
	if err := c.Alert.Validate(); err != nil {
		return err
	}

	if c.Status.Port < 0 || c.Status.Port > 65535 {
		return fmt.Errorf("status.port must be between 0 and 65535, got %d", c.Status.Port)
	}

	return nil
}

// Validate checks the github section.
func (g *GitHubConfig) Validate() error {
	if g.Token == "" {
		return errors.New("github.token is required")
	}

	parsedURL, err := url.Parse(g.URL)
	if err != nil {
		return fmt.Errorf("github.url: invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("github.url: url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("github.url: url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("github.url: url must have a host")
	}

	if g.UserAgent == "" {
		return errors.New("github.user_agent cannot be empty")
	}
	if g.Timeout.Duration() < minInterval {
		return fmt.Errorf("github.timeout must be at least %s, got %s", minInterval, g.Timeout.Duration())
	}
	if g.MaxResponseSize <= 0 {
		return fmt.Errorf("github.max_response_size must be positive, got %d", g.MaxResponseSize.Bytes())
	}
	return nil
}

// Validate checks the device section.
func (d *DeviceConfig) Validate() error {
	if strings.TrimSpace(d.Host) == "" {
		return errors.New("device.host is required")
	}
	if d.Token == "" {
		return errors.New("device.token is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("device.port must be between 1 and 65535, got %d", d.Port)
	}
	if d.Timeout.Duration() <= 0 {
		return fmt.Errorf("device.timeout must be positive, got %s", d.Timeout.Duration())
	}
	return nil
}

// Validate checks the alert section.
func (a *AlertConfig) Validate() error {
	if a.Duration.Duration() < time.Second || a.Duration.Duration() > maxAlertDuration {
		return fmt.Errorf("alert.duration must be between 1s and %s, got %s", maxAlertDuration, a.Duration.Duration())
	}
	if a.Hue < 0 || a.Hue > 360 {
		return fmt.Errorf("alert.hue must be between 0 and 360, got %d", a.Hue)
	}
	if a.Saturation < 0 || a.Saturation > 100 {
		return fmt.Errorf("alert.saturation must be between 0 and 100, got %d", a.Saturation)
	}
	if a.Brightness < 0 || a.Brightness > 100 {
		return fmt.Errorf("alert.brightness must be between 0 and 100, got %d", a.Brightness)
	}
	if !nanoleaf.ValidAnimType(a.AnimType) {
		return fmt.Errorf("alert.anim_type %q is not a known animation type", a.AnimType)
	}
	if a.Timeout.Duration() <= 0 {
		return fmt.Errorf("alert.timeout must be positive, got %s", a.Timeout.Duration())
	}
	return nil
}

// SlogLevel returns the configured log level. Invalid values fall back to
// info; [Config.Validate] reports them.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "error":
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return 0, err
		}
		return level, nil
	default:
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
}
