// Package server provides the HTTP API for Tsunagu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/chat"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/vector"
)

// Server is the HTTP server for the Tsunagu API.
type Server struct {
	chat   *chat.Service
	index  vector.Index
	config *config.Config
	logger *zap.Logger
	server *http.Server

	// testConnection probes the completion backend for /status. Optional.
	testConnection func(ctx context.Context) error
}

// NewServer creates a server with the given dependencies.
func NewServer(chatService *chat.Service, index vector.Index, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		chat:   chatService,
		index:  index,
		config: cfg,
		logger: logger,
	}
}

// WithConnectionTest sets a probe used by /status to report LLM reachability.
func (s *Server) WithConnectionTest(probe func(ctx context.Context) error) *Server {
	s.testConnection = probe
	return s
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/chat/stream", s.handleChatStream)
	r.Post("/api/v1/synthesize", s.handleSynthesize)
	r.Get("/api/v1/projects/{projectID}/sessions", s.handleListSessions)
	r.Get("/api/v1/sessions/search", s.handleSearchSessions)
	r.Get("/api/v1/sessions/{sessionID}", s.handleGetSession)
	r.Delete("/api/v1/sessions/{sessionID}", s.handleDeleteSession)
	r.Post("/api/v1/sessions/{sessionID}/summary", s.handleSessionSummary)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
