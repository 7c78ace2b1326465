package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMinInterval floors every sleep so a zero poll hint cannot spin.
	DefaultMinInterval = time.Second

	// DefaultAlertTimeout bounds a single alert trigger.
	DefaultAlertTimeout = 10 * time.Second
)

// Source is the check-now capability the loop polls. [*Client] implements it.
type Source interface {
	Check(ctx context.Context) (Outcome, error)
}

// Sink is the capability that renders one alert.
//
// TriggerAlert may be called repeatedly and should honour ctx. The loop stops
// waiting once the alert timeout expires; a call that ignores ctx keeps
// running in the background until it returns.
type Sink interface {
	TriggerAlert(ctx context.Context) error
}

// Result describes one loop iteration.
type Result struct {
	// Outcome is valid only when Err is nil.
	Outcome Outcome

	// Err is the error returned by the source, if any.
	Err error

	// Alerted reports whether the sink was triggered and succeeded.
	Alerted bool

	// AlertErr is set when the sink was triggered and failed.
	AlertErr error

	// CheckedAt is when the check started.
	CheckedAt time.Time

	// Latency is the time the check took.
	Latency time.Duration

	// Wait is how long the loop sleeps after this iteration.
	Wait time.Duration
}

// LoopConfig configures a [Loop]. Zero values select the defaults.
type LoopConfig struct {
	// FallbackInterval is slept after a failed check.
	// Defaults to [DefaultFallbackInterval].
	FallbackInterval time.Duration

	// MinInterval is the shortest sleep between checks.
	// Defaults to [DefaultMinInterval].
	MinInterval time.Duration

	// AlertTimeout bounds one call to [Sink.TriggerAlert].
	// Defaults to [DefaultAlertTimeout].
	AlertTimeout time.Duration

	// Observer, if set, receives every [Result] before the loop sleeps.
	// It runs on the loop goroutine and must not block.
	Observer func(Result)
}

// Loop repeatedly checks a [Source] and triggers a [Sink] while there are
// notifications.
//
// Loop is strictly sequential: one check, at most one trigger, one sleep.
// A failed check or trigger never stops it; only cancelling the context
// passed to [Loop.Run] does. There is no de-duplication: every iteration
// with a positive count triggers the sink again.
type Loop struct {
	source       Source
	sink         Sink
	fallback     time.Duration
	minInterval  time.Duration
	alertTimeout time.Duration
	observer     func(Result)
	logger       *slog.Logger

	// wait sleeps for d or until ctx is done; replaced in tests
	wait func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a [Loop]. If logger is nil, slog.Default() is used.
func NewLoop(source Source, sink Sink, cfg LoopConfig, logger *slog.Logger) (*Loop, error) {
	if source == nil {
		return nil, errors.New("poller: source is required")
	}
	if sink == nil {
		return nil, errors.New("poller: sink is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loop{
		source:       source,
		sink:         sink,
		fallback:     cfg.FallbackInterval,
		minInterval:  cfg.MinInterval,
		alertTimeout: cfg.AlertTimeout,
		observer:     cfg.Observer,
		logger:       logger,
		wait:         sleepContext,
	}
	if l.fallback <= 0 {
		l.fallback = DefaultFallbackInterval
	}
	if l.minInterval <= 0 {
		l.minInterval = DefaultMinInterval
	}
	if l.alertTimeout <= 0 {
		l.alertTimeout = DefaultAlertTimeout
	}

	return l, nil
}

// Run polls until ctx is cancelled, then returns nil.
//
// The first check happens immediately. Between checks the loop sleeps for
// the outcome's NextInterval (floored at MinInterval), or for the fallback
// interval after a failed check.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		result := l.RunOnce(ctx)

		// a check cut short by shutdown is not worth reporting
		if ctx.Err() != nil {
			return nil
		}
		if l.observer != nil {
			l.observer(result)
		}

		if err := l.wait(ctx, result.Wait); err != nil {
			return nil
		}
	}
}

// RunOnce performs a single iteration without sleeping and reports how long
// the caller should wait before the next one.
func (l *Loop) RunOnce(ctx context.Context) Result {
	start := time.Now()
	outcome, err := l.source.Check(ctx)

	result := Result{
		CheckedAt: start,
		Latency:   time.Since(start),
	}

	if err != nil {
		result.Err = err
		result.Wait = l.fallback
		return result
	}

	result.Outcome = outcome
	result.Wait = outcome.NextInterval
	if result.Wait < l.minInterval {
		result.Wait = l.minInterval
	}

	if outcome.Count > 0 {
		if err := l.trigger(ctx); err != nil {
			result.AlertErr = err
		} else {
			result.Alerted = true
		}
	}

	return result
}

// trigger calls the sink under the alert timeout. Panics are recovered,
// logged with a correlation id and returned as an [*AlertError].
func (l *Loop) trigger(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.alertTimeout)
	defer cancel()

	// buffered so a sink that outlives the timeout can still finish and exit
	done := make(chan error, 1)
	go func() {
		done <- l.callSink(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &AlertError{Err: fmt.Errorf("sink did not return: %w", ctx.Err())}
	}
}

// callSink runs the sink once, converting a panic into an [AlertError].
func (l *Loop) callSink(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()

			l.logger.Error("alert sink panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)

			err = &AlertError{CorrelationID: correlationID, Err: fmt.Errorf("sink panic: %v", r)}
		}
	}()

	if err := l.sink.TriggerAlert(ctx); err != nil {
		return &AlertError{Err: err}
	}
	return nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
