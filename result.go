package leafpulse

import (
	"context"
	"time"

	"github.com/jpalmerr/leafpulse/internal/poller"
)

// AlertSink renders one alert, for example a light flash.
//
// TriggerAlert is called once per poll that finds pending notifications, so
// it runs again on every poll until the notifications are read. It should
// honour ctx; the [Notifier] cancels it after the alert timeout and stops
// waiting for it either way.
type AlertSink interface {
	TriggerAlert(ctx context.Context) error
}

// AlertFunc adapts a plain function to [AlertSink].
type AlertFunc func(ctx context.Context) error

// TriggerAlert calls f.
func (f AlertFunc) TriggerAlert(ctx context.Context) error {
	return f(ctx)
}

// PollResult holds the outcome of one poll.
//
// PollResult is a value type; the [Notifier] never modifies it after handing
// it to a callback.
type PollResult struct {
	// Count is the number of unread notifications returned. Zero on 304 and
	// on non-success statuses.
	Count int

	// StatusCode is the HTTP status of the response. Zero if the request
	// failed before a response arrived.
	StatusCode int

	// NotModified reports a 304 answer to a conditional request.
	NotModified bool

	// NextInterval is how long the poller waits before the next poll.
	NextInterval time.Duration

	// CheckedAt is when the poll started.
	CheckedAt time.Time

	// Latency is how long the request took.
	Latency time.Duration

	// Err is the poll error, if any. See [ErrorKind].
	Err error

	// Alerted reports that the sink was triggered and succeeded.
	Alerted bool

	// AlertErr is set when the sink was triggered and failed.
	AlertErr error
}

// Error types returned by polls. Match them with errors.As.
type (
	// TransportError reports a network failure, including timeouts.
	TransportError = poller.TransportError

	// ProtocolError reports a response that breaks the API contract.
	ProtocolError = poller.ProtocolError

	// AlertError reports a failed or panicking alert sink.
	AlertError = poller.AlertError
)

// Sentinel errors wrapped by [ProtocolError]. Match them with errors.Is.
var (
	ErrUnsupportedPayload  = poller.ErrUnsupportedPayload
	ErrInvalidPollInterval = poller.ErrInvalidPollInterval
	ErrPayloadTooLarge     = poller.ErrPayloadTooLarge
)

// ErrorKind classifies err as "transport", "protocol", "alert" or "unknown".
// It returns "" for nil.
func ErrorKind(err error) string {
	return poller.ErrorKind(err)
}

func resultFromLoop(r poller.Result) PollResult {
	return PollResult{
		Count:        r.Outcome.Count,
		StatusCode:   r.Outcome.StatusCode,
		NotModified:  r.Outcome.NotModified,
		NextInterval: r.Wait,
		CheckedAt:    r.CheckedAt,
		Latency:      r.Latency,
		Err:          r.Err,
		Alerted:      r.Alerted,
		AlertErr:     r.AlertErr,
	}
}
