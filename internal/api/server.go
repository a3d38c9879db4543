package api

import (
	"context"
	"net/http"
	"time"

	"InsightBlitz/internal/auth"
	"InsightBlitz/internal/config"
)

// Server owns the HTTP listener for the REST API.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer wires handlers and routing.
func NewServer(cfg config.ServerConfig, handlers *Handlers, authManager *auth.Manager) *Server {
	return &Server{
		cfg:     cfg,
		handler: SetupRoutes(cfg, handlers, authManager),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
