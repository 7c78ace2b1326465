package leafpulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/leafpulse/internal/poller"
	"github.com/jpalmerr/leafpulse/internal/server"
	"github.com/jpalmerr/leafpulse/internal/store"
)

// Notifier watches the GitHub notifications API and triggers an [AlertSink]
// while unread notifications are pending.
//
// Notifier is created using [New] with functional options and started with
// [Notifier.Start]. The typical lifecycle is:
//
//	n, err := leafpulse.New(
//	    leafpulse.WithToken(os.Getenv("GITHUB_TOKEN")),
//	    leafpulse.WithAlertSink(sink),
//	)
//	if err != nil {
//	    slog.Error("failed to create notifier", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	n.Start(ctx) // blocks until context cancelled
type Notifier struct {
	client        *poller.Client
	sink          AlertSink
	fallback      time.Duration
	alertTimeout  time.Duration
	statusPort    int
	logger        *slog.Logger
	pollCallbacks []func(PollResult)
}

// New creates a new [Notifier] with the given options.
//
// [WithToken] and [WithAlertSink] are required. Other options have defaults:
//   - Notifications URL: https://api.github.com/notifications
//   - Fallback interval: 20 seconds
//   - Request timeout: 30 seconds
//   - Alert timeout: 10 seconds
//   - Status server: disabled
//
// New makes no network request.
func New(opts ...Option) (*Notifier, error) {
	cfg := &notifierConfig{
		url:              poller.DefaultNotificationsURL,
		userAgent:        poller.DefaultUserAgent,
		requestTimeout:   poller.DefaultRequestTimeout,
		fallbackInterval: poller.DefaultFallbackInterval,
		maxResponseSize:  poller.DefaultMaxBodySize,
		alertTimeout:     poller.DefaultAlertTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.token == "" {
		return nil, errors.New("token is required")
	}
	if cfg.sink == nil {
		return nil, errors.New("alert sink is required")
	}

	client, err := poller.NewClient(poller.ClientConfig{
		URL:              cfg.url,
		Token:            cfg.token,
		UserAgent:        cfg.userAgent,
		Timeout:          cfg.requestTimeout,
		FallbackInterval: cfg.fallbackInterval,
		MaxBodySize:      cfg.maxResponseSize,
		HTTPClient:       cfg.httpClient,
	})
	if err != nil {
		return nil, err
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		client:        client,
		sink:          cfg.sink,
		fallback:      cfg.fallbackInterval,
		alertTimeout:  cfg.alertTimeout,
		statusPort:    cfg.statusPort,
		logger:        logger,
		pollCallbacks: cfg.pollCallbacks,
	}, nil
}

// Start polls until the provided context is cancelled.
//
// The first poll happens immediately. After that the server's
// X-Poll-Interval hint decides the pace, or the fallback interval when there
// is none or the poll failed. Failed polls and failed alerts are logged and
// never stop the loop.
//
// When a status port is configured, the status server runs for the same
// lifetime.
//
// Returns nil on graceful shutdown. Returns an error if the status server
// fails to start.
func (n *Notifier) Start(ctx context.Context) error {
	n.logger.Info("leafpulse starting", "url", n.client.URL())
	n.logger.Info("polling configured", "fallback_interval", n.fallback.String())

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	statusStore := store.NewMemoryStore(n.client.URL())

	if n.statusPort > 0 {
		httpServer := server.NewServer(statusStore, n.statusPort, n.logger)
		if err := httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		n.logger.Info("status server available", "url", fmt.Sprintf("http://localhost:%d/api/status", n.statusPort))
	}

	loop, err := poller.NewLoop(n.client, n.sink, poller.LoopConfig{
		FallbackInterval: n.fallback,
		AlertTimeout:     n.alertTimeout,
		Observer: func(r poller.Result) {
			n.observe(statusStore, r)
		},
	}, n.logger)
	if err != nil {
		return err
	}

	err = loop.Run(ctx)
	n.client.Close()
	n.logger.Info("leafpulse stopped")
	return err
}

// URL returns the notifications endpoint being polled.
func (n *Notifier) URL() string {
	return n.client.URL()
}

// FallbackInterval returns the wait used without a server poll hint.
func (n *Notifier) FallbackInterval() time.Duration {
	return n.fallback
}

// StatusPort returns the status server port, 0 if disabled.
func (n *Notifier) StatusPort() int {
	return n.statusPort
}

// observe runs after every poll: store first, then callbacks, then logs.
func (n *Notifier) observe(st store.Store, r poller.Result) {
	st.Update(recordFromLoop(r))

	if len(n.pollCallbacks) > 0 {
		result := resultFromLoop(r)
		for _, cb := range n.pollCallbacks {
			invokeCallbackSafe(cb, result, n.logger)
		}
	}

	logAttrs := []any{
		"latency_ms", r.Latency.Milliseconds(),
		"next_interval", r.Wait.String(),
	}

	switch {
	case r.Err != nil:
		n.logger.Warn("poll failed", append(logAttrs,
			"error", r.Err.Error(),
			"error_kind", poller.ErrorKind(r.Err),
		)...)
		return
	case r.AlertErr != nil:
		attrs := append(logAttrs,
			"item_count", r.Outcome.Count,
			"error", r.AlertErr.Error(),
			"error_kind", poller.ErrorKind(r.AlertErr),
		)
		var ae *poller.AlertError
		if errors.As(r.AlertErr, &ae) && ae.CorrelationID != "" {
			attrs = append(attrs, "correlation_id", ae.CorrelationID)
		}
		n.logger.Warn("alert failed", attrs...)
	case r.Alerted:
		n.logger.Info("notifications pending", append(logAttrs,
			"item_count", r.Outcome.Count,
			"status_code", r.Outcome.StatusCode,
		)...)
	default:
		// DEBUG level for empty polls to reduce noise
		n.logger.Debug("poll completed", append(logAttrs,
			"status_code", r.Outcome.StatusCode,
			"not_modified", r.Outcome.NotModified,
		)...)
	}
}

// recordFromLoop converts a loop result to a store record.
func recordFromLoop(r poller.Result) store.PollRecord {
	record := store.PollRecord{
		CheckedAt:      r.CheckedAt,
		ItemCount:      r.Outcome.Count,
		StatusCode:     r.Outcome.StatusCode,
		NotModified:    r.Outcome.NotModified,
		LatencyMs:      r.Latency.Milliseconds(),
		NextIntervalMs: r.Wait.Milliseconds(),
		Alerted:        r.Alerted,
	}
	if r.Err != nil {
		s := r.Err.Error()
		record.Error = &s
		record.ErrorKind = poller.ErrorKind(r.Err)
	}
	if r.AlertErr != nil {
		s := r.AlertErr.Error()
		record.AlertError = &s
	}
	return record
}

// invokeCallbackSafe calls a poll callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(PollResult), result PollResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("poll callback panicked",
				"panic", r,
				"item_count", result.Count,
			)
		}
	}()
	cb(result)
}
