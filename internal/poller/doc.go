// Package poller implements the notification polling core of leafpulse.
//
// This package is internal to leafpulse. It owns the conditional-GET
// relationship with the notification endpoint and the loop that turns each
// answer into at most one alert.
//
// The main components are:
//
//   - [Client]: conditional-GET client that keeps the last ETag and
//     X-Poll-Interval hint between checks
//   - [Loop]: sequential check, trigger, sleep cycle driven by a context
//   - [Source] and [Sink]: the narrow interfaces the loop depends on
//   - [TransportError], [ProtocolError], [AlertError]: the error taxonomy
//
// Users of the leafpulse library configure this package through the root
// package options rather than directly.
package poller
