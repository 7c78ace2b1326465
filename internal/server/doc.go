// Package server provides the optional leafpulse status server.
//
// This package is internal to leafpulse and handles all HTTP concerns:
//
//   - REST API: JSON snapshot of the last poll at "/api/status"
//   - Server-Sent Events: one event per poll at "/api/sse"
//   - Liveness: plain "ok" at "/healthz"
//
// The server shuts down when its context is cancelled, giving in-flight
// requests 5 seconds to finish.
//
// It is started by [leafpulse.Notifier.Start] when a status port is set.
package server
