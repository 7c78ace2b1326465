package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/leafpulse"
	"github.com/jpalmerr/leafpulse/internal/nanoleaf"
)

func main() {
	// start mock servers (see mock_server.go)
	go StartMockGitHub(":9999", 5)
	go StartMockDevice(":16021")
	time.Sleep(100 * time.Millisecond)

	device, err := nanoleaf.NewClient(nanoleaf.Config{Host: "localhost", Token: "demo"})
	if err != nil {
		slog.Error("failed to create device client", "error", err)
		os.Exit(1)
	}

	// a short blue pulse instead of the default red flash
	alerter, err := nanoleaf.NewAlerter(device, nanoleaf.Flash{
		Duration: 2 * time.Second,
		Color:    nanoleaf.HSB{Hue: 220, Saturation: 90, Brightness: 100},
		Anim:     nanoleaf.AnimFlow,
	})
	if err != nil {
		slog.Error("failed to create alerter", "error", err)
		os.Exit(1)
	}

	n, err := leafpulse.New(
		leafpulse.WithToken("demo-token"),
		leafpulse.WithNotificationsURL("http://localhost:9999/notifications"),
		leafpulse.WithAlertSink(alerter),
		leafpulse.WithStatusPort(8080),
		leafpulse.WithPollCallback(func(r leafpulse.PollResult) {
			fmt.Printf("  %s  %d unread (status %d, next poll in %s)\n",
				r.CheckedAt.Format(time.TimeOnly), r.Count, r.StatusCode, r.NextInterval)
		}),
	)
	if err != nil {
		slog.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  LeafPulse Demo")
	fmt.Println()
	fmt.Println("  Mock GitHub:  http://localhost:9999/notifications")
	fmt.Println("  Mock panels:  http://localhost:16021")
	fmt.Println("  Status:       http://localhost:8080/api/status")
	fmt.Println()
	fmt.Println("  The mock inbox changes every 20-60 seconds.")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		slog.Error("leafpulse error", "error", err)
		os.Exit(1)
	}
}
