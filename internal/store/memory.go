package store

import (
	"sync"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber so the poll loop is never held up.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot Snapshot

	subscribers map[chan PollRecord]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates an empty [MemoryStore] for the given source URL.
func NewMemoryStore(source string) *MemoryStore {
	return &MemoryStore{
		snapshot:    Snapshot{Source: source},
		subscribers: make(map[chan PollRecord]struct{}),
	}
}

// Update records a [PollRecord], advances the counters and notifies all
// subscribers.
func (m *MemoryStore) Update(record PollRecord) {
	m.mu.Lock()
	m.snapshot.Polls++
	if record.Error != nil {
		m.snapshot.Failures++
	}
	if record.Alerted {
		m.snapshot.Alerts++
		at := record.CheckedAt
		m.snapshot.LastAlertAt = &at
	}
	if record.AlertError != nil {
		m.snapshot.AlertFailures++
	}
	last := record
	m.snapshot.LastPoll = &last
	m.mu.Unlock()

	m.notifySubscribers(record)
}

// Snapshot returns a copy of the current state.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.LastPoll != nil {
		last := *snap.LastPoll
		snap.LastPoll = &last
	}
	if snap.LastAlertAt != nil {
		at := *snap.LastAlertAt
		snap.LastAlertAt = &at
	}
	return snap
}

// Subscribe creates a new subscription and returns a channel for receiving
// records.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan PollRecord {
	ch := make(chan PollRecord, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan PollRecord) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the record to all active subscribers without
// blocking.
func (m *MemoryStore) notifySubscribers(record PollRecord) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- record:
		default:
			// subscriber is slow, drop the message
		}
	}
}
