// Package api provides the ops HTTP surface of the broadcast worker.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomcast/qabroadcast/internal/api/handler"
	"github.com/roomcast/qabroadcast/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger         zerolog.Logger
	TracerProvider trace.TracerProvider
	Ops            handler.OpsConfig
}

// NewRouter creates a new chi router with the ops routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(cfg.TracerProvider))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	opsHandler := handler.NewOpsHandler(cfg.Ops)

	r.Route("/v1/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.Get("/sends", opsHandler.SendStatus)
	})

	return r
}
