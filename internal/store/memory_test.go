package store

import (
	"sync"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore("https://api.github.com/notifications")
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	snap := store.Snapshot()
	if snap.Source != "https://api.github.com/notifications" {
		t.Errorf("Snapshot().Source = %q, want %q", snap.Source, "https://api.github.com/notifications")
	}
	if snap.Polls != 0 {
		t.Errorf("Snapshot().Polls = %d, want 0", snap.Polls)
	}
	if snap.LastPoll != nil {
		t.Errorf("Snapshot().LastPoll = %+v, want nil", snap.LastPoll)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore("src")

	checkedAt := time.Now()
	store.Update(PollRecord{
		CheckedAt:      checkedAt,
		ItemCount:      3,
		StatusCode:     200,
		NextIntervalMs: 60000,
		Alerted:        true,
	})

	snap := store.Snapshot()
	if snap.Polls != 1 {
		t.Errorf("Polls = %d, want 1", snap.Polls)
	}
	if snap.Alerts != 1 {
		t.Errorf("Alerts = %d, want 1", snap.Alerts)
	}
	if snap.LastPoll == nil || snap.LastPoll.ItemCount != 3 {
		t.Fatalf("LastPoll = %+v, want ItemCount 3", snap.LastPoll)
	}
	if snap.LastAlertAt == nil || !snap.LastAlertAt.Equal(checkedAt) {
		t.Errorf("LastAlertAt = %v, want %v", snap.LastAlertAt, checkedAt)
	}
}

func TestMemoryStore_Counters(t *testing.T) {
	store := NewMemoryStore("src")

	store.Update(PollRecord{ItemCount: 0})
	store.Update(PollRecord{Error: strPtr("connection refused"), ErrorKind: "transport"})
	store.Update(PollRecord{Error: strPtr("bad header"), ErrorKind: "protocol"})
	store.Update(PollRecord{ItemCount: 2, AlertError: strPtr("device offline")})
	store.Update(PollRecord{ItemCount: 2, Alerted: true})

	snap := store.Snapshot()
	if snap.Polls != 5 {
		t.Errorf("Polls = %d, want 5", snap.Polls)
	}
	if snap.Failures != 2 {
		t.Errorf("Failures = %d, want 2", snap.Failures)
	}
	if snap.AlertFailures != 1 {
		t.Errorf("AlertFailures = %d, want 1", snap.AlertFailures)
	}
	if snap.Alerts != 1 {
		t.Errorf("Alerts = %d, want 1", snap.Alerts)
	}
}

func TestMemoryStore_LastPollOverwrites(t *testing.T) {
	store := NewMemoryStore("src")

	store.Update(PollRecord{ItemCount: 1, LatencyMs: 100})
	store.Update(PollRecord{ItemCount: 0, LatencyMs: 200, NotModified: true})
	store.Update(PollRecord{ItemCount: 4, LatencyMs: 300})

	last := store.Snapshot().LastPoll
	if last == nil {
		t.Fatal("LastPoll = nil")
	}
	if last.ItemCount != 4 {
		t.Errorf("LastPoll.ItemCount = %d, want 4", last.ItemCount)
	}
	if last.LatencyMs != 300 {
		t.Errorf("LastPoll.LatencyMs = %d, want 300", last.LatencyMs)
	}
}

func TestMemoryStore_SnapshotIsCopy(t *testing.T) {
	store := NewMemoryStore("src")
	store.Update(PollRecord{CheckedAt: time.Unix(100, 0), ItemCount: 1, Alerted: true})

	snap := store.Snapshot()
	snap.LastPoll.ItemCount = 99
	*snap.LastAlertAt = time.Time{}

	again := store.Snapshot()
	if again.LastPoll.ItemCount != 1 {
		t.Errorf("LastPoll.ItemCount = %d after mutating a snapshot, want 1", again.LastPoll.ItemCount)
	}
	if again.LastAlertAt.IsZero() {
		t.Error("LastAlertAt was modified through a snapshot")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore("src")

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(PollRecord{ItemCount: 7})
	}()

	select {
	case record := <-ch:
		if record.ItemCount != 7 {
			t.Errorf("received ItemCount = %d, want 7", record.ItemCount)
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore("src")

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		store.Update(PollRecord{ItemCount: 1})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore("src")

	ch := store.Subscribe()
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}

	// second call must be a no-op
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore("src")

	// create a subscriber but don't read from it
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < 2*subscriberBuffer; i++ {
			store.Update(PollRecord{ItemCount: i})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore("src")

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				store.Update(PollRecord{ItemCount: j, Alerted: j%2 == 0})
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.Snapshot()
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if got, want := store.Snapshot().Polls, int64(numGoroutines*numUpdates); got != want {
		t.Errorf("Polls = %d, want %d", got, want)
	}
}
