// Package server is the HTTP backend the sync engine talks to: accounts,
// owner-scoped task records and document blobs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"todo-sync/internal/auth"
	"todo-sync/internal/remote"

	"github.com/go-chi/chi/v5"
)

// Options tune the HTTP server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the backend HTTP server
type Server struct {
	httpServer      *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// NewRouter wires the routes. Health and auth endpoints are public; every
// other /api/v1 route requires a bearer token.
func NewRouter(h *Handler, health *HealthHandler, tokens *auth.TokenIssuer, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware())
	router.Use(RequestLogger(logger))

	router.Get("/health/live", health.Live)
	router.Get("/health/ready", health.Ready)
	router.Get("/metrics", health.Metrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", h.Signup)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(tokens, logger))

			r.Get("/users/me", h.Me)
			r.Patch("/users/me", h.UpdateMe)

			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.CreateTask)
			r.Get("/tasks/{id}", h.GetTask)
			r.Patch("/tasks/{id}", h.UpdateTask)
			r.Delete("/tasks/{id}", h.DeleteTask)

			r.Post("/documents", h.UploadDocument)
			r.Get("/documents/{id}", h.GetDocument)
			r.Delete("/documents/{id}", h.DeleteDocument)
		})
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, remote.CodeNotFound, "route not found")
	})
	return router
}

// New creates the server around a router
func New(opts Options, router http.Handler, logger *slog.Logger) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
		logger:          logger,
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server started", slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
