// Package api provides the HTTP API server.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/remedyops/remedy/internal/api/handlers"
	"github.com/remedyops/remedy/internal/api/middleware"
	"github.com/remedyops/remedy/pkg/config"
)

// Remediator is everything the API needs from the orchestrator.
type Remediator interface {
	handlers.Remediator
	handlers.LogSource
	handlers.ActionFeed
}

// Server is the HTTP API server.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// NewServer creates an API server exposing the given orchestrator.
func NewServer(cfg *config.Config, remediator Remediator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "api"),
	}
	s.setupRouter(remediator)
	return s
}

func (s *Server) setupRouter(remediator Remediator) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	deploymentHandler := handlers.NewDeploymentHandler(remediator, s.logger)
	logsHandler := handlers.NewLogsHandler(remediator, s.logger)
	automationHandler := handlers.NewAutomationHandler(remediator, s.logger)
	streamHandler := handlers.NewActionStreamHandler(remediator, s.logger)

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.JWTSecret, s.logger)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/deployments", deploymentHandler.List)
		r.Get("/deployments/{id}", deploymentHandler.Get)
		r.Get("/deployments/{id}/errors", deploymentHandler.Errors)
		r.Get("/deployments/{id}/actions", deploymentHandler.Actions)
		r.Get("/deployments/{id}/logs", logsHandler.List)

		r.Get("/automation", automationHandler.Get)
		r.Put("/automation", automationHandler.Set)

		r.Get("/actions/stream", streamHandler.Stream)
	})

	s.router = r
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming endpoints manage their own deadlines
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the configured router, used by tests.
func (s *Server) Router() chi.Router {
	return s.router
}
