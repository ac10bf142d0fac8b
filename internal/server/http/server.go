// Package httpserver provides the HTTP REST API for the systematic review
// service: starting reviews, polling their status and fetching results.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/database"
	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/store"
)

// ReviewRunner executes a review run for an already created session.
type ReviewRunner interface {
	Run(ctx context.Context, req domain.ReviewRequest) (*domain.ReviewResult, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	sessions   store.SessionStore
	runner     ReviewRunner
	db         *database.DB
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server. db may be nil when the service runs
// with the in-memory store; readiness then reports ready unconditionally.
func NewServer(cfg Config, sessions store.SessionStore, runner ReviewRunner, db *database.DB, logger zerolog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		runner:   runner,
		db:       db,
		validate: validator.New(),
		logger:   logger.With().Str("component", "http_server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)
		r.Post("/", s.startReview)
		r.Get("/", s.listReviews)
		r.Get("/{reviewID}", s.getReview)
		r.Get("/{reviewID}/result", s.getReviewResult)
		r.Get("/{reviewID}/articles", s.getReviewArticles)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops serving.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness, including database health when a
// database is configured.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": health.Status,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent; nothing left to do.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
