package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/directory"
	"github.com/ryanbastic/cafedir/internal/metrics"
	"github.com/ryanbastic/cafedir/internal/moderation"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(logger *slog.Logger, gate *admin.Gate, workflow *moderation.Workflow, dir *directory.Service, backends map[string]Pinger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	api := humachi.New(mux, huma.DefaultConfig("Cafe Directory API", "1.0.0"))
	registerCafeRoutes(api, NewCafeHandler(dir, gate, logger))
	registerUpdateRequestRoutes(api, NewUpdateRequestHandler(workflow, gate, logger))

	// Browser pages
	adminHandler := NewAdminHandler(workflow, gate, logger)
	mux.Get("/admin", adminHandler.Dashboard)
	mux.Get("/admin/login", adminHandler.LoginForm)
	mux.Post("/admin/login", adminHandler.Login)
	mux.Post("/admin/logout", adminHandler.Logout)

	// Health
	healthHandler := NewHealthHandler(backends, logger)
	mux.Get("/livez", healthHandler.Livez)
	mux.Get("/readyz", healthHandler.Readyz)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
