package store

import "time"

// PollRecord is the storage representation of one poll loop iteration,
// shaped for JSON output by the status server.
type PollRecord struct {
	// CheckedAt is when the check started.
	CheckedAt time.Time `json:"checked_at"`

	// ItemCount is the number of notifications seen. Zero on error.
	ItemCount int `json:"item_count"`

	// StatusCode is the HTTP status of the notification response.
	// Zero if the request failed before receiving a response.
	StatusCode int `json:"status_code"`

	// NotModified reports a 304 answer.
	NotModified bool `json:"not_modified"`

	// LatencyMs is the check latency in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// NextIntervalMs is the sleep that followed this check.
	NextIntervalMs int64 `json:"next_interval_ms"`

	// Alerted reports a successful alert trigger.
	Alerted bool `json:"alerted"`

	// Error is the check error, if any.
	Error *string `json:"error"`

	// ErrorKind classifies Error: "transport", "protocol" or "unknown".
	ErrorKind string `json:"error_kind,omitempty"`

	// AlertError is the trigger error, if any.
	AlertError *string `json:"alert_error"`
}

// Snapshot is the current poll state.
type Snapshot struct {
	// Source is the notification endpoint being polled.
	Source string `json:"source"`

	// Polls counts completed iterations.
	Polls int64 `json:"polls"`

	// Failures counts iterations whose check failed.
	Failures int64 `json:"failures"`

	// Alerts counts successful alert triggers.
	Alerts int64 `json:"alerts"`

	// AlertFailures counts failed alert triggers.
	AlertFailures int64 `json:"alert_failures"`

	// LastAlertAt is when the last successful alert fired.
	LastAlertAt *time.Time `json:"last_alert_at"`

	// LastPoll is the most recent record, nil before the first poll.
	LastPoll *PollRecord `json:"last_poll"`
}

// Store defines the interface for storing and subscribing to poll records.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update records a poll and notifies all subscribers.
	Update(record PollRecord)

	// Snapshot returns the current state. The result is a copy.
	Snapshot() Snapshot

	// Subscribe returns a channel that receives poll records.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan PollRecord

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan PollRecord)
}
