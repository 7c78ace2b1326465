package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockInbox is a notification list that changes every 20-60 seconds.
type mockInbox struct {
	mu           sync.Mutex
	unread       int
	version      int
	nextChangeAt time.Time
}

// tick adds or clears notifications when the scheduled change time is reached.
func (m *mockInbox) tick() {
	if time.Now().Before(m.nextChangeAt) {
		return
	}
	old := m.unread
	if m.unread > 0 && rand.Intn(2) == 0 {
		m.unread = 0
	} else {
		m.unread += 1 + rand.Intn(3)
	}
	m.version++
	m.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
	slog.Info("inbox change", "from", old, "to", m.unread)
}

// StartMockGitHub runs a notifications endpoint at addr. It answers
// conditional requests with 304 while the inbox is unchanged and asks
// clients to poll every pollInterval seconds.
// Call this in a goroutine before starting the notifier.
func StartMockGitHub(addr string, pollInterval int) {
	inbox := &mockInbox{nextChangeAt: time.Now().Add(5 * time.Second)}

	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		inbox.mu.Lock()
		inbox.tick()
		unread, version := inbox.unread, inbox.version
		inbox.mu.Unlock()

		etag := fmt.Sprintf(`W/"%d"`, version)
		w.Header().Set("ETag", etag)
		w.Header().Set("X-Poll-Interval", fmt.Sprint(pollInterval))

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		items := make([]map[string]any, unread)
		for i := range items {
			items[i] = map[string]any{"id": fmt.Sprint(version*100 + i), "unread": true}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(items); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock github error", "error", err)
	}
}

// StartMockDevice runs a Nanoleaf controller stand-in at addr that accepts
// any token and logs effect writes.
func StartMockDevice(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"Mock Shapes","serialNo":"MOCK0001","firmwareVersion":"9.2.4","model":"NL42",`+
			`"effects":{"effectsList":["Aurora"],"select":"Aurora"},`+
			`"panelLayout":{"layout":{"numPanels":1,"sideLength":0,"positionData":[{"panelId":1,"x":0,"y":0,"o":0,"shapeType":7}]}}}`)
	})
	mux.HandleFunc("PUT /api/v1/{token}/effects", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		slog.Info("panels flashed", "command", string(body))
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock device error", "error", err)
	}
}
