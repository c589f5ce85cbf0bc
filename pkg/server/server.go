// Package server exposes the relay over HTTP and WebSocket.
//
// The HTTP side is thin plumbing: JSON in, JSON out, straight into the
// session registry and relay. The WebSocket side owns connection
// lifecycle: upgrade, join, read loop, guaranteed cleanup.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padsync/padsync/pkg/middleware"
	"github.com/padsync/padsync/pkg/registry"
	"github.com/padsync/padsync/pkg/relay"
	"github.com/padsync/padsync/pkg/room"
)

// Server is the relay's HTTP/WebSocket front end.
type Server struct {
	config *Config
	relay  *relay.Relay
	router chi.Router
	logger *slog.Logger

	httpServer *http.Server
}

// New creates a server with a fresh registry, room manager, and relay.
func New(config *Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	sessions := registry.NewRegistry(logger)
	rooms := room.NewManager(config.HistoryCap, config.HistoryRetain, logger)

	s := &Server{
		config: config,
		relay:  relay.New(sessions, rooms, logger),
		logger: logger.With("component", "server"),
	}
	s.router = s.buildRouter()
	return s
}

// Relay returns the underlying relay, mainly for tests and diagnostics.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus())
	r.Use(middleware.OpenTelemetry())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Patch("/", s.handleUpdateSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/room", s.handleRoomInfo)
		})
	})

	r.Get("/ws/{sessionID}", s.handleWebSocket)

	return r
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.router,
	}
	s.logger.Info("listening", "addr", s.config.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP listener and tears down every live session
// room, closing all connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Close remaining websocket connections so readers unblock.
	page, _ := s.relay.Sessions().List(0, 0)
	for _, sess := range page {
		s.relay.OnSessionDelete(sess.ID)
	}

	s.logger.Info("server shut down", "sessions_closed", len(page))
	return err
}

// handleHealth reports liveness and the active session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Timestamp:      time.Now().UTC(),
		Version:        Version,
		ActiveSessions: s.relay.Sessions().CountActive(),
	})
}
