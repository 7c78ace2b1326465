// Package leafpulse turns unread GitHub notifications into a light signal.
//
// A [Notifier] polls the GitHub notifications API with conditional requests,
// honouring the ETag and X-Poll-Interval headers the API sends, and triggers
// an [AlertSink] after every poll that finds unread notifications. The
// bundled sink flashes Nanoleaf light panels; any type with a TriggerAlert
// method, or an [AlertFunc], works.
//
// # Quick Start
//
//	sink := leafpulse.AlertFunc(func(ctx context.Context) error {
//	    fmt.Println("you have notifications")
//	    return nil
//	})
//
//	n, _ := leafpulse.New(
//	    leafpulse.WithToken(os.Getenv("GITHUB_TOKEN")),
//	    leafpulse.WithAlertSink(sink),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	n.Start(ctx) // blocks until context is cancelled
//
// # Polling
//
// The first poll is immediate. Each later poll waits for the most recent
// X-Poll-Interval the server sent, or for the fallback interval
// ([WithFallbackInterval]) when the server never sent one. A failed poll
// also waits for the fallback interval. Waits are never shorter than one
// second.
//
// A 304 Not Modified answer, or any other non-success status, counts as zero
// notifications. The alert fires again on every poll while the count stays
// positive; there is no de-duplication.
//
// # Errors
//
// Polls fail with a [TransportError] when the request cannot be completed
// and a [ProtocolError] when the response breaks the API contract. Neither
// stops the [Notifier]. Use [WithPollCallback] or [ErrorKind] to observe
// them.
//
// # Architecture
//
// leafpulse consists of several internal packages (under internal/):
//
//   - internal/poller: Conditional-GET client and the poll/alert loop
//   - internal/nanoleaf: Nanoleaf OpenAPI client and alert sink
//   - internal/store: In-memory poll history with pub/sub
//   - internal/server: Optional status API with Server-Sent Events
//
// The internal packages are not part of the public API and may change
// without notice.
package leafpulse
