// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     server
// Description: HTTP and WebSocket presentation API for the engine
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/msto63/signspeak/internal/companion/settings"
	"github.com/msto63/signspeak/internal/companion/state"
	"github.com/msto63/signspeak/pkg/core/health"
	"github.com/msto63/signspeak/pkg/core/logging"
)

// Engine is the command and state surface the API exposes
type Engine interface {
	Snapshot() state.Snapshot
	Subscribe() <-chan state.Snapshot
	Unsubscribe(ch <-chan state.Snapshot)
	UpdateSettings(p settings.Patch) (settings.Settings, error)
	RequestSpeak(text string) error
	Connect(address string) error
	EnterDemoMode() error
	TestConnection(ctx context.Context, address string) error
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Version:      "dev",
	}
}

// Server is the presentation API server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	health     *health.Registry
	logger     *logging.Logger
	config     Config
	listener   net.Listener
}

// New creates a server for engine
func New(cfg Config, engine Engine) *Server {
	logger := logging.New("server")

	registry := health.NewRegistry("signspeak", cfg.Version)
	registry.Register(health.StateCheck("backend",
		func() bool { return engine.Snapshot().Connected },
		"connected", "not connected", health.StatusDegraded))
	registry.Register(health.StateCheck("session",
		func() bool { return engine.Snapshot().Active },
		"polling", "idle", health.StatusDegraded))

	h := &handler{engine: engine, health: registry, logger: logger, version: cfg.Version}
	ws := &wsHandler{engine: engine, writeWait: cfg.WriteTimeout, logger: logging.New("server-websocket")}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/state", h.handleState).Methods(http.MethodGet)
	api.HandleFunc("/log", h.handleLog).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.handleSettings).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/speak", h.handleSpeak).Methods(http.MethodPost)
	api.HandleFunc("/connect", h.handleConnect).Methods(http.MethodPost)
	api.HandleFunc("/demo", h.handleDemo).Methods(http.MethodPost)
	api.HandleFunc("/probe", h.handleProbe).Methods(http.MethodPost)
	api.HandleFunc("/version", h.handleVersion).Methods(http.MethodGet)
	api.Handle("/ws", ws).Methods(http.MethodGet)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Unknown endpoint: "+r.URL.Path)
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	})
	// subrouters keep their own handlers; mux does not inherit them
	r.NotFoundHandler, api.NotFoundHandler = notFound, notFound
	r.MethodNotAllowedHandler, api.MethodNotAllowedHandler = notAllowed, notAllowed
	r.Use(loggingMiddleware(logger))

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:     r,
			ReadTimeout: cfg.ReadTimeout,
			// no WriteTimeout: it would cut websocket streams
		},
		router: r,
		health: registry,
		logger: logger,
		config: cfg,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartAsync listens and serves in a goroutine
func (s *Server) StartAsync() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	s.logger.Info("Presentation API listening", "address", s.Address())
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down presentation API")
	return s.httpServer.Shutdown(ctx)
}

// Address returns the listen address
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// loggingMiddleware logs every request at debug level
func loggingMiddleware(logger *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapper.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// responseWrapper captures the status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
