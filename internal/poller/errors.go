package poller

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPayload is returned (wrapped in a [ProtocolError]) when a
	// successful response carries valid JSON that is not an array.
	ErrUnsupportedPayload = errors.New("unsupported payload shape")

	// ErrInvalidPollInterval is returned (wrapped in a [ProtocolError]) when the
	// X-Poll-Interval header is not a non-negative integer.
	ErrInvalidPollInterval = errors.New("invalid poll interval")

	// ErrPayloadTooLarge is returned (wrapped in a [ProtocolError]) when a
	// response body exceeds the configured size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// TransportError reports that a request could not be sent or its response
// could not be fully received.
type TransportError struct {
	// Op describes the step that failed, e.g. "send request".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response that arrived but broke the expected
// contract. It usually means the API changed rather than a transient fault.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "protocol: " + e.Reason
	}
	return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AlertError reports a failed or panicking alert trigger.
//
// CorrelationID is only set for panics; the matching stack trace is logged
// under the same id.
type AlertError struct {
	CorrelationID string
	Err           error
}

func (e *AlertError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("alert: %v (correlation_id: %s)", e.Err, e.CorrelationID)
	}
	return fmt.Sprintf("alert: %v", e.Err)
}

func (e *AlertError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err for logs and status output. It returns
// "transport", "protocol", "alert", or "unknown"; an empty string for nil.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var te *TransportError
	var pe *ProtocolError
	var ae *AlertError
	switch {
	case errors.As(err, &pe):
		return "protocol"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &ae):
		return "alert"
	default:
		return "unknown"
	}
}
