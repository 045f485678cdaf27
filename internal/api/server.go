// Package api exposes the broker over HTTP: command submission, broker
// status, and the command journal.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yanissrairi/kicad-mcp-server/internal/journal"
	"github.com/yanissrairi/kicad-mcp-server/internal/tools"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks github.com/yanissrairi/kicad-mcp-server/internal/api CommandBroker,JournalReader,ProcessState

// CommandBroker defines the interface for command submission.
type CommandBroker interface {
	Submit(ctx context.Context, command string, params any) (json.RawMessage, error)
}

// JournalReader defines the interface for reading the command journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// ProcessState reports whether the scripting child is alive.
type ProcessState interface {
	Running() bool
	PID() int
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the single bearer token. Empty means every request is
	// rejected.
	APIKey string
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	broker    CommandBroker
	client    *tools.Client
	journal   JournalReader
	proc      ProcessState
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance
func New(config Config, broker CommandBroker, jr JournalReader, proc ProcessState, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		broker:    broker,
		client:    tools.NewClient(broker),
		journal:   jr,
		proc:      proc,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 11 * time.Minute, // long-running commands hold the connection
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/v1/commands/{name}", s.handleCommand)
		r.Get("/v1/status", s.handleStatus)
		r.Get("/v1/journal", s.handleJournal)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
