package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DylanCerv/sublimacion/internal/controller"
	"github.com/DylanCerv/sublimacion/internal/service"
	"github.com/DylanCerv/sublimacion/pkg/health"
	"github.com/DylanCerv/sublimacion/pkg/middleware"
)

// AdminLimits is the per-IP token bucket applied to the admin routes.
type AdminLimits struct {
	RPS   float64
	Burst int
}

// NewRouter creates a chi router with all catalog routes registered. ctx
// bounds the background work of the admin rate limiter.
func NewRouter(
	ctx context.Context,
	catalogService *service.CatalogService,
	ctrl *controller.Controller,
	sessions *controller.Sessions,
	healthHandler *health.Handler,
	limits AdminLimits,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("catalog"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("catalog"))
	r.Use(chimw.Timeout(30 * time.Second))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	catalogHandler := NewCatalogHandler(catalogService, ctrl, logger)

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/search", catalogHandler.Search)
		r.Get("/facets", catalogHandler.Facets)
		r.Get("/status", catalogHandler.Status)
		r.Get("/featured", catalogHandler.Featured)
		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/products/{id}", catalogHandler.GetProduct)
		r.Get("/products/{id}/related", catalogHandler.Related)
		r.Get("/collections", catalogHandler.ListCollections)
		r.Get("/collections/{slug}/products", catalogHandler.CollectionProducts)
	})

	sessionHandler := NewSessionHandler(sessions, logger)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", sessionHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.Delete)
			r.Put("/term", sessionHandler.SetTerm)
			r.Post("/toggle/{facet}/{value}", sessionHandler.Toggle)
			r.Put("/price", sessionHandler.SetPriceRange)
			r.Delete("/filters", sessionHandler.ClearAll)
			r.Get("/results", sessionHandler.Results)
		})
	})

	adminHandler := NewAdminHandler(catalogService, ctrl, logger)

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, limits.RPS, limits.Burst, logger))
		r.Use(ContentTypeJSON)

		r.Post("/products", adminHandler.CreateProduct)
		r.Put("/products/{id}", adminHandler.UpdateProduct)
		r.Delete("/products/{id}", adminHandler.DeleteProduct)

		r.Post("/collections", adminHandler.CreateCollection)
		r.Put("/collections/{id}", adminHandler.UpdateCollection)
		r.Delete("/collections/{id}", adminHandler.DeleteCollection)

		r.Post("/catalog/refresh", adminHandler.Refresh)
		r.Get("/stats", adminHandler.Stats)
	})

	return r
}
