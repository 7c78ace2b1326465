// Standalone mock GitHub API and Nanoleaf controller for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/leafpulse run -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock GitHub API on :9999, mock Nanoleaf controller on :16021")
	fmt.Println("The inbox alternates between 0 and 2 unread every 30 seconds")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu      sync.Mutex
		version int
		started = time.Now()
	)

	github := http.NewServeMux()
	github.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		phase := int(time.Since(started) / (30 * time.Second))
		if phase != version {
			version = phase
			slog.Info("inbox change", "version", version)
		}
		unread := 2 * (version % 2)
		etag := fmt.Sprintf(`W/"%d"`, version)
		mu.Unlock()

		w.Header().Set("ETag", etag)
		w.Header().Set("X-Poll-Interval", "5")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		items := make([]map[string]string, unread)
		for i := range items {
			items[i] = map[string]string{"id": fmt.Sprint(version*100 + i)}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	})

	device := http.NewServeMux()
	device.HandleFunc("GET /api/v1/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"Mock Shapes","serialNo":"MOCK0001","firmwareVersion":"9.2.4","model":"NL42",`+
			`"effects":{"effectsList":["Aurora"],"select":"Aurora"},`+
			`"panelLayout":{"layout":{"numPanels":2,"sideLength":0,"positionData":[`+
			`{"panelId":1,"x":0,"y":0,"o":0,"shapeType":7},{"panelId":0,"x":67,"y":38,"o":60,"shapeType":12}]}}}`)
	})
	device.HandleFunc("PUT /api/v1/{token}/effects", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		slog.Info("panels flashed", "command", string(body))
		w.WriteHeader(http.StatusNoContent)
	})

	errChan := make(chan error, 2)
	go func() { errChan <- http.ListenAndServe(":9999", github) }()
	go func() { errChan <- http.ListenAndServe(":16021", device) }()

	if err := <-errChan; err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
