package leafpulse

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// notifierConfig holds mutable state during Notifier construction.
type notifierConfig struct {
	url              string
	token            string
	userAgent        string
	requestTimeout   time.Duration
	fallbackInterval time.Duration
	maxResponseSize  int64
	httpClient       *http.Client
	sink             AlertSink
	alertTimeout     time.Duration
	statusPort       int
	logger           *slog.Logger
	pollCallbacks    []func(PollResult)
}

// Option is a function that configures a [Notifier] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*notifierConfig) error

// WithToken sets the personal access token sent as "Authorization: Bearer <t>".
// Required.
func WithToken(token string) Option {
	return func(cfg *notifierConfig) error {
		if token == "" {
			return errors.New("token cannot be empty")
		}
		cfg.token = token
		return nil
	}
}

// WithNotificationsURL overrides the notifications endpoint.
//
// Defaults to https://api.github.com/notifications. Useful for GitHub
// Enterprise hosts and tests.
func WithNotificationsURL(url string) Option {
	return func(cfg *notifierConfig) error {
		if url == "" {
			return errors.New("notifications URL cannot be empty")
		}
		cfg.url = url
		return nil
	}
}

// WithUserAgent sets the User-Agent header. Defaults to "leafpulse".
func WithUserAgent(ua string) Option {
	return func(cfg *notifierConfig) error {
		if ua == "" {
			return errors.New("user agent cannot be empty")
		}
		cfg.userAgent = ua
		return nil
	}
}

// WithRequestTimeout bounds each notifications request.
//
// The minimum is 1 second. Defaults to 30 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *notifierConfig) error {
		if d < time.Second {
			return fmt.Errorf("request timeout must be at least 1s, got %v", d)
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithFallbackInterval sets the wait used when the server has never sent an
// X-Poll-Interval header and after a failed check.
//
// The minimum is 1 second. Defaults to 20 seconds.
//
// Example:
//
//	n, err := leafpulse.New(
//	    leafpulse.WithToken(token),
//	    leafpulse.WithAlertSink(sink),
//	    leafpulse.WithFallbackInterval(time.Minute),
//	)
func WithFallbackInterval(d time.Duration) Option {
	return func(cfg *notifierConfig) error {
		if d < time.Second {
			return fmt.Errorf("fallback interval must be at least 1s, got %v", d)
		}
		cfg.fallbackInterval = d
		return nil
	}
}

// WithMaxResponseSize caps the notifications body in bytes. Larger bodies
// fail the check with [ErrPayloadTooLarge]. Defaults to 1MiB.
func WithMaxResponseSize(n int64) Option {
	return func(cfg *notifierConfig) error {
		if n <= 0 {
			return fmt.Errorf("max response size must be positive, got %d", n)
		}
		cfg.maxResponseSize = n
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for notifications requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *notifierConfig) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = c
		return nil
	}
}

// WithAlertSink sets what is triggered while notifications are pending.
// Required.
func WithAlertSink(sink AlertSink) Option {
	return func(cfg *notifierConfig) error {
		if sink == nil {
			return errors.New("alert sink cannot be nil")
		}
		cfg.sink = sink
		return nil
	}
}

// WithAlertTimeout bounds a single alert trigger. Defaults to 10 seconds.
func WithAlertTimeout(d time.Duration) Option {
	return func(cfg *notifierConfig) error {
		if d <= 0 {
			return fmt.Errorf("alert timeout must be positive, got %v", d)
		}
		cfg.alertTimeout = d
		return nil
	}
}

// WithStatusPort enables the status server on the given port.
//
// The server exposes /api/status, /api/sse and /healthz. Port 0 (the default)
// disables it.
func WithStatusPort(port int) Option {
	return func(cfg *notifierConfig) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("status port must be between 0 and 65535, got %d", port)
		}
		cfg.statusPort = port
		return nil
	}
}

// WithLogger sets a custom logger for the [Notifier].
//
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *notifierConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPollCallback registers a function called after every completed poll.
//
// Callbacks run synchronously on the polling goroutine after the status
// store has been updated, in registration order. A slow callback delays the
// next poll. Panics are recovered and logged.
//
// Example:
//
//	leafpulse.WithPollCallback(func(r leafpulse.PollResult) {
//	    if r.Err != nil {
//	        metrics.Inc("poll_failures")
//	    }
//	})
func WithPollCallback(fn func(PollResult)) Option {
	return func(cfg *notifierConfig) error {
		if fn == nil {
			return errors.New("poll callback cannot be nil")
		}
		cfg.pollCallbacks = append(cfg.pollCallbacks, fn)
		return nil
	}
}
