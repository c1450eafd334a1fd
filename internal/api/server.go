// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/accounts/internal/platform/config"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/middleware"
	"github.com/taibuivan/accounts/internal/users/account"
	"github.com/taibuivan/accounts/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all HTTP handler sets mounted by the server.
type Handlers struct {
	// Liveness is the /health handler. It returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when every dependency answers.
	Readiness http.HandlerFunc

	// Auth handles the account and session routes.
	Auth *auth.Handler

	// Account serves the caller's own profile.
	Account *account.Handler

	// Metrics exposes the Prometheus registry. Optional.
	Metrics http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// The context bounds background goroutines owned by the middleware (the
// rate limiter's cleanup loop).
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, registry *metrics.Registry, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log, registry))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg, splitOrigins(cfg.ExtraOrigins)))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/me", h.Account.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root router. Used by tests to drive requests without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// splitOrigins parses the comma separated EXTRA_ORIGINS value.
func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
