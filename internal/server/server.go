package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/leafpulse/internal/store"
)

const (
	// eventWriteTimeout bounds one SSE write so a stalled client cannot pin
	// its handler past shutdown. Keep it <= shutdownTimeout.
	eventWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Server serves the status API for one notifier:
//   - GET /api/status: the current [store.Snapshot] as JSON
//   - GET /api/sse: Server-Sent Events, one per poll
//   - GET /healthz: liveness
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	logger     *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer returns an unstarted [Server]. Port 0 lets the OS pick a free
// port; see [Server.Addr].
func NewServer(st store.Store, port int, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		port:   port,
		logger: logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start binds the port and serves in the background until ctx is done,
// then shuts down with a 5 second grace period. It returns once the
// listener is open, or with an error if the port cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	// request contexts inherit ctx, so open SSE streams end on shutdown
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.serve(ln)
	go s.shutdownOnDone(ctx)

	return nil
}

func (s *Server) serve(ln net.Listener) {
	err := s.httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("status server failed", "error", err)
	}
}

func (s *Server) shutdownOnDone(ctx context.Context) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("status server shutdown failed", "error", err)
	}
}

// Addr returns the bound address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(s.store.Snapshot()); err != nil {
		s.logger.Error("failed to encode snapshot", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handleSSE sends the latest record, if any, then one event per poll until
// the client goes away or the server shuts down.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	// subscribe before reading the snapshot so no record falls in between
	updates := s.store.Subscribe()
	defer s.store.Unsubscribe(updates)

	stream := newEventStream(w, s.logger)

	if last := s.store.Snapshot().LastPoll; last != nil {
		if err := stream.send(last); err != nil {
			return
		}
	}

	for {
		select {
		case record, ok := <-updates:
			if !ok {
				return
			}
			if err := stream.send(record); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// eventStream writes JSON-encoded SSE data frames with a per-write deadline.
type eventStream struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	logger    *slog.Logger
	deadlines bool
}

func newEventStream(w http.ResponseWriter, logger *slog.Logger) *eventStream {
	return &eventStream{
		w:         w,
		rc:        http.NewResponseController(w),
		logger:    logger,
		deadlines: true,
	}
}

// send writes v as one event. Values that fail to encode are skipped.
func (e *eventStream) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn("failed to encode event", "error", err)
		return nil
	}

	// some ResponseWriters (e.g. recorders) cannot set deadlines
	if e.deadlines {
		if err := e.rc.SetWriteDeadline(time.Now().Add(eventWriteTimeout)); err != nil {
			e.logger.Debug("sse write deadlines unavailable", "error", err)
			e.deadlines = false
		}
	}

	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return e.rc.Flush()
}
