package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const deviceToken = "leaf-token"

const deviceInfo = `{
  "name": "Shapes 4A2B",
  "serialNo": "S19124C8036",
  "firmwareVersion": "9.2.4",
  "model": "NL42",
  "effects": {"effectsList": ["Aurora"], "select": "Aurora"},
  "panelLayout": {"layout": {"numPanels": 2, "sideLength": 0, "positionData": [
    {"panelId": 58, "x": 0, "y": 0, "o": 0, "shapeType": 7},
    {"panelId": 0, "x": 67, "y": 38, "o": 60, "shapeType": 12}
  ]}}
}`

// fakeDevice records effect writes and serves a fixed description.
type fakeDevice struct {
	mu     sync.Mutex
	writes [][]byte
	states [][]byte
	status int
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status != 0 {
		w.WriteHeader(d.status)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/"+deviceToken:
		_, _ = w.Write([]byte(deviceInfo))
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/"+deviceToken+"/effects/select":
		_, _ = w.Write([]byte(`"Flames"`))
	case r.Method == http.MethodPut && r.URL.Path == "/api/v1/"+deviceToken+"/state":
		body, _ := io.ReadAll(r.Body)
		d.states = append(d.states, body)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut && r.URL.Path == "/api/v1/"+deviceToken+"/effects":
		body, _ := io.ReadAll(r.Body)
		d.writes = append(d.writes, body)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (d *fakeDevice) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

// startDevice serves d and returns the --device-host and --device-port args.
func startDevice(t *testing.T, d *fakeDevice) []string {
	t.Helper()

	ts := httptest.NewServer(d)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	return []string{"--device-host", host, "--device-port", port, "--device-token", deviceToken}
}

// startGitHub serves a notifications list of count items.
func startGitHub(t *testing.T, count int, requests *atomic.Int32) string {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}

		if r.Header.Get("Authorization") != "Bearer ghp_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-Poll-Interval", "60")
		items := make([]map[string]int, count)
		for i := range items {
			items[i] = map[string]int{"id": i}
		}
		_ = json.NewEncoder(w).Encode(items)
	}))
	t.Cleanup(ts.Close)
	return ts.URL + "/notifications"
}

func TestCheckCmd(t *testing.T) {
	ghURL := startGitHub(t, 3, nil)

	output, _, err := executeCmd(t, "check", "--github-token", "ghp_test", "--github-url", ghURL)
	if err != nil {
		t.Fatalf("check command error = %v", err)
	}

	for _, phrase := range []string{"Notifications: 3", "Status:      200", "Next poll:   1m0s"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot:\n%s", phrase, output)
		}
	}
}

func TestCheckCmd_DoesNotNeedDevice(t *testing.T) {
	ghURL := startGitHub(t, 0, nil)

	output, _, err := executeCmd(t, "check", "-c", writeConfig(t, "github:\n  token: ghp_test\n  url: "+ghURL+"\n"))
	if err != nil {
		t.Fatalf("check command error = %v", err)
	}
	if !strings.Contains(output, "Notifications: 0") {
		t.Errorf("output = %q, want zero notifications", output)
	}
}

func TestCheckCmd_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	deadURL := ts.URL
	ts.Close()

	_, _, err := executeCmd(t, "check", "--github-token", "ghp_test", "--github-url", deadURL)
	if err == nil {
		t.Fatal("check command should fail when GitHub is unreachable")
	}
	if !strings.Contains(err.Error(), "check failed (transport)") {
		t.Errorf("error = %v, want 'check failed (transport)'", err)
	}
}

func TestCheckCmd_MissingToken(t *testing.T) {
	_, _, err := executeCmd(t, "check")
	if err == nil {
		t.Fatal("check command should fail without a token")
	}
	if !strings.Contains(err.Error(), "github.token is required") {
		t.Errorf("error = %v, want 'github.token is required'", err)
	}
}

func TestAlertCmd(t *testing.T) {
	device := &fakeDevice{}
	args := append([]string{"alert"}, startDevice(t, device)...)

	output, _, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("alert command error = %v", err)
	}
	if !strings.Contains(output, "Alert sent to") {
		t.Errorf("output = %q, want 'Alert sent to'", output)
	}
	if got := device.writeCount(); got != 1 {
		t.Fatalf("effect writes = %d, want 1", got)
	}

	var payload struct {
		Write struct {
			Command  string `json:"command"`
			Duration int    `json:"duration"`
		} `json:"write"`
	}
	if err := json.Unmarshal(device.writes[0], &payload); err != nil {
		t.Fatalf("decode write: %v", err)
	}
	if payload.Write.Command != "displayTemp" || payload.Write.Duration != 5 {
		t.Errorf("write = %+v, want displayTemp for 5s", payload.Write)
	}
}

func TestAlertCmd_PowerOn(t *testing.T) {
	device := &fakeDevice{}
	args := append([]string{"alert", "--power-on"}, startDevice(t, device)...)

	if _, _, err := executeCmd(t, args...); err != nil {
		t.Fatalf("alert command error = %v", err)
	}

	device.mu.Lock()
	defer device.mu.Unlock()
	if len(device.states) != 1 {
		t.Fatalf("state writes = %d, want 1", len(device.states))
	}
	if got := string(device.states[0]); got != `{"on":{"value":true}}` {
		t.Errorf("state body = %s, want %s", got, `{"on":{"value":true}}`)
	}
	if len(device.writes) != 1 {
		t.Errorf("effect writes = %d, want 1", len(device.writes))
	}
}

func TestAlertCmd_DeviceRejects(t *testing.T) {
	device := &fakeDevice{status: http.StatusUnauthorized}
	args := append([]string{"alert"}, startDevice(t, device)...)

	_, _, err := executeCmd(t, args...)
	if err == nil {
		t.Fatal("alert command should fail when the device rejects the write")
	}
	if !strings.Contains(err.Error(), "alert failed") {
		t.Errorf("error = %v, want 'alert failed'", err)
	}
}

func TestInfoCmd(t *testing.T) {
	args := append([]string{"info"}, startDevice(t, &fakeDevice{})...)

	output, _, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("info command error = %v", err)
	}

	for _, phrase := range []string{"Shapes 4A2B (NL42)", "Firmware: 9.2.4", "Effect:   Flames", "Panels:   2", "hexagon", "controller"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot:\n%s", phrase, output)
		}
	}
}

func TestInfoCmd_JSON(t *testing.T) {
	args := append([]string{"info", "--json"}, startDevice(t, &fakeDevice{})...)

	output, _, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("info command error = %v", err)
	}
	if !json.Valid([]byte(output)) {
		t.Errorf("output is not valid JSON:\n%s", output)
	}
	if !strings.Contains(output, `"serialNo": "S19124C8036"`) {
		t.Errorf("output missing serial number:\n%s", output)
	}
}

func TestRunCmd_PollsAndFlashes(t *testing.T) {
	device := &fakeDevice{}
	var requests atomic.Int32
	ghURL := startGitHub(t, 2, &requests)

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"run", "--github-token", "ghp_test", "--github-url", ghURL}, startDevice(t, device)...))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("run command error = %v", err)
	}

	// one startup flash plus one for the pending notifications
	if got := device.writeCount(); got != 2 {
		t.Errorf("effect writes = %d, want 2", got)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("GitHub requests = %d, want 1", got)
	}

	logs := stderr.String()
	for _, phrase := range []string{`"msg":"device connected"`, `"panel_count":2`, `"msg":"notifications pending"`, `"msg":"shutdown complete"`} {
		if !strings.Contains(logs, phrase) {
			t.Errorf("logs missing %s\nGot:\n%s", phrase, logs)
		}
	}
}

func TestRunCmd_DeviceUnreachable(t *testing.T) {
	device := &fakeDevice{status: http.StatusServiceUnavailable}
	ghURL := startGitHub(t, 0, nil)

	args := append([]string{"run", "--github-token", "ghp_test", "--github-url", ghURL}, startDevice(t, device)...)
	_, _, err := executeCmd(t, args...)
	if err == nil {
		t.Fatal("run command should fail when the device is unreachable")
	}
	if !strings.Contains(err.Error(), "device unreachable") {
		t.Errorf("error = %v, want 'device unreachable'", err)
	}
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	_, _, err := executeCmd(t, "run", "--github-token", "ghp_test")
	if err == nil {
		t.Fatal("run command should fail without device settings")
	}
	if !strings.Contains(err.Error(), "device.host is required") {
		t.Errorf("error = %v, want 'device.host is required'", err)
	}
}
