package leafpulse

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// firstResult runs n until the first poll completes and returns its result.
func firstResult(t *testing.T, n *Notifier) PollResult {
	t.Helper()

	var result PollResult
	done := make(chan struct{})
	var once sync.Once
	n.pollCallbacks = append(n.pollCallbacks, func(r PollResult) {
		once.Do(func() {
			result = r
			close(done)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Start(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for callback")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Start() error = %v", err)
	}
	return result
}

func TestWithPollCallback_ReceivesCorrectFields(t *testing.T) {
	api := &notificationsAPI{count: 4, pollInterval: "60"}
	n := newNotifier(t, api)

	result := firstResult(t, n)

	if result.Count != 4 {
		t.Errorf("Count = %d, want 4", result.Count)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusOK)
	}
	if result.NextInterval != 60*time.Second {
		t.Errorf("NextInterval = %v, want 60s", result.NextInterval)
	}
	if !result.Alerted {
		t.Error("Alerted = false, want true")
	}
	if result.CheckedAt.IsZero() {
		t.Error("CheckedAt should not be zero")
	}
	if result.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", result.Latency)
	}
	if result.Err != nil || result.AlertErr != nil {
		t.Errorf("Err = %v, AlertErr = %v, want nil", result.Err, result.AlertErr)
	}
}

func TestWithPollCallback_EmptyListDoesNotAlert(t *testing.T) {
	var alerts atomic.Int32
	n := newNotifier(t, &notificationsAPI{},
		WithAlertSink(AlertFunc(func(context.Context) error {
			alerts.Add(1)
			return nil
		})),
	)

	result := firstResult(t, n)

	if result.Count != 0 || result.Alerted {
		t.Errorf("result = %+v, want no items and no alert", result)
	}
	if got := alerts.Load(); got != 0 {
		t.Errorf("alerts = %d, want 0", got)
	}
	// no X-Poll-Interval: default fallback
	if result.NextInterval != 20*time.Second {
		t.Errorf("NextInterval = %v, want 20s", result.NextInterval)
	}
}

func TestWithPollCallback_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	n, err := New(
		WithToken("t0k3n"),
		WithNotificationsURL(url),
		WithAlertSink(noopSink),
		WithLogger(discardLogger()),
		WithFallbackInterval(2*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := firstResult(t, n)

	var te *TransportError
	if !errors.As(result.Err, &te) {
		t.Fatalf("Err = %v, want *TransportError", result.Err)
	}
	if ErrorKind(result.Err) != "transport" {
		t.Errorf("ErrorKind = %q, want %q", ErrorKind(result.Err), "transport")
	}
	if result.NextInterval != 2*time.Second {
		t.Errorf("NextInterval = %v, want fallback 2s", result.NextInterval)
	}
	if result.Alerted {
		t.Error("Alerted = true after a failed poll")
	}
}

func TestWithPollCallback_ProtocolError(t *testing.T) {
	n := newNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"not a list"}`))
	}))

	result := firstResult(t, n)

	var pe *ProtocolError
	if !errors.As(result.Err, &pe) {
		t.Fatalf("Err = %v, want *ProtocolError", result.Err)
	}
	if !errors.Is(result.Err, ErrUnsupportedPayload) {
		t.Errorf("Err = %v, want to wrap ErrUnsupportedPayload", result.Err)
	}
	if ErrorKind(result.Err) != "protocol" {
		t.Errorf("ErrorKind = %q, want %q", ErrorKind(result.Err), "protocol")
	}
}

func TestWithPollCallback_AlertError(t *testing.T) {
	n := newNotifier(t, &notificationsAPI{count: 1},
		WithAlertSink(AlertFunc(func(context.Context) error {
			return errors.New("device offline")
		})),
	)

	result := firstResult(t, n)

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if result.Alerted {
		t.Error("Alerted = true, want false when the sink fails")
	}
	var ae *AlertError
	if !errors.As(result.AlertErr, &ae) {
		t.Fatalf("AlertErr = %v, want *AlertError", result.AlertErr)
	}
	if !strings.Contains(ae.Error(), "device offline") {
		t.Errorf("AlertErr = %q, want to contain %q", ae.Error(), "device offline")
	}
}

func TestWithPollCallback_SinkPanicIsRecovered(t *testing.T) {
	var logBuf bytes.Buffer
	n := newNotifier(t, &notificationsAPI{count: 1},
		WithAlertSink(AlertFunc(func(context.Context) error {
			panic("lights on fire")
		})),
		WithLogger(slog.New(slog.NewJSONHandler(&logBuf, nil))),
	)

	result := firstResult(t, n)

	var ae *AlertError
	if !errors.As(result.AlertErr, &ae) {
		t.Fatalf("AlertErr = %v, want *AlertError", result.AlertErr)
	}
	if ae.CorrelationID == "" {
		t.Error("CorrelationID is empty for a panicking sink")
	}
	if !strings.Contains(logBuf.String(), ae.CorrelationID) {
		t.Error("correlation id was not logged")
	}
}

func TestWithPollCallback_PanicRecovery(t *testing.T) {
	var logBuf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &logBuf}, nil))

	var normalCalled atomic.Bool
	n := newNotifier(t, &notificationsAPI{},
		WithPollCallback(func(PollResult) { panic("intentional test panic") }),
		WithPollCallback(func(PollResult) { normalCalled.Store(true) }), // should still be called after panic
		WithLogger(logger),
	)

	_ = firstResult(t, n)

	if !normalCalled.Load() {
		t.Error("subsequent callbacks should still run after panic")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(logBuf.String(), "poll callback panicked") {
		t.Errorf("panic should have been logged, got: %s", logBuf.String())
	}
}

func TestWithPollCallback_ExecutionOrder(t *testing.T) {
	var order []int
	var mu sync.Mutex

	record := func(i int) func(PollResult) {
		return func(PollResult) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		}
	}

	n := newNotifier(t, &notificationsAPI{},
		WithPollCallback(record(1)),
		WithPollCallback(record(2)),
		WithPollCallback(record(3)),
	)

	_ = firstResult(t, n)

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 3 {
		t.Fatalf("order = %v, want at least 3 entries", order)
	}
	for i, want := range []int{1, 2, 3} {
		if order[i] != want {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want)
		}
	}
}

// lockedWriter serialises writes so the buffer can be read safely.
type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
