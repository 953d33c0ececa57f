// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// DefaultModel is reported in done frames.
	DefaultModel = "mock-1"

	// DefaultChunkSize is the number of runes per chunk frame.
	DefaultChunkSize = 8

	// MaxRequestBodySize caps request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024
)

// ============================================================================
// SERVER
// ============================================================================

// Config configures the mock backend.
type Config struct {
	Addr string

	// Token, when set, is the only bearer token accepted.
	Token string

	Model     string
	ChunkSize int

	// ChunkDelay is the pause between chunk frames.
	ChunkDelay time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:       DefaultAddr,
		Model:      DefaultModel,
		ChunkSize:  DefaultChunkSize,
		ChunkDelay: 30 * time.Millisecond,
	}
}

// Server is the mock chat backend.
type Server struct {
	cfg     Config
	store   *store
	metrics *Metrics
	log     zerolog.Logger
	router  chi.Router
	server  *http.Server
}

// New creates a server. Zero config fields use the defaults.
func New(cfg Config, log zerolog.Logger) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}

	s := &Server{
		cfg:     cfg,
		store:   newStore(),
		metrics: NewMetrics(),
		log:     log.With().Str("component", "mockserver").Logger(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(recordMetrics(s.metrics))
	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(s.cfg.Token, s.log))
		r.Use(chimw.RequestSize(MaxRequestBodySize))

		r.Post("/streaming/chats/users/{userId}", s.handleNewChat)
		r.Put("/streaming/chats/{chatId}", s.handleContinueChat)
		r.Post("/streaming/chats/{chatId}/{elicitationId}/elicitation-response", s.handleElicitationResponse)

		r.Get("/chats/users/{userId}", s.handleListChats)
		r.Get("/chats/{chatId}", s.handleChatDetails)
	})
	return r
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info().Str("addr", s.cfg.Addr).Str("model", s.cfg.Model).Msg("mock server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info().Msg("mock server shutting down")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
