// Package store keeps the latest poll state and fans poll records out to
// subscribers.
//
// This package is internal to leafpulse. It backs the optional status server:
// the loop writes one [PollRecord] per iteration and the server reads
// [Snapshot] values or streams records to Server-Sent Events clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [PollRecord]: Storage representation of one loop iteration
//   - [Snapshot]: Latest record plus running counters
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than stall the poll loop).
package store
