// Package handler implements the service's operational HTTP endpoints.
// The reservation workload itself arrives over AMQP; HTTP only serves
// liveness and readiness probes.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/transitlab/traffic-service/internal/middleware"
)

// Pinger reports whether the database is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies the operational endpoints need.
type Server struct {
	db Pinger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(db Pinger) *Server {
	return &Server{db: db}
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(s *Server, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Get("/readyz", s.GetReady)

	return r
}
