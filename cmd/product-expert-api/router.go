// Package main runs the catalog HTTP API.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/coldstore-ai/product-expert/cmd/product-expert-api/handlers"
	"github.com/coldstore-ai/product-expert/cmd/product-expert-api/middleware"
	"github.com/coldstore-ai/product-expert/internal/config"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// routerDeps carries the wired handlers into the router.
type routerDeps struct {
	cfg       *config.Config
	logger    *observability.Logger
	store     *storage.Store
	ingestion *handlers.IngestionHandler
	products  *handlers.ProductHandler
	query     *handlers.QueryHandler
	recommend *handlers.RecommendHandler
	admin     *handlers.AdminHandler
}

// newRouter assembles the route tree. Read endpoints are open to any
// authenticated caller; ingestion needs sales_engineer, conflict and
// registry review need product_manager.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.cfg.Server.CORSOrigins))
	r.Use(chimiddleware.Timeout(d.cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"product-expert"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := d.store.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Enabled: d.cfg.Auth.Enabled,
			APIKeys: d.cfg.Auth.APIKeys,
		}))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", d.products.List)
			r.Route("/{idOrModel}", func(r chi.Router) {
				r.Get("/", d.products.Get)
				r.Get("/versions", d.products.Versions)
				r.Get("/relationships", d.products.Relationships)
				r.Get("/documents", d.products.Documents)
				r.Get("/equivalents", d.products.Equivalents)
			})
		})

		r.Post("/search", d.query.Search)
		r.Post("/ask", d.query.Ask)

		r.Post("/recommend", d.recommend.Recommend)
		r.Get("/recommend/use-cases", d.recommend.UseCases)
		r.Post("/compare", d.recommend.Compare)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleSalesEngineer))
			r.Post("/ingest", d.ingestion.Upload)
			r.Get("/ingest/jobs", d.ingestion.ListJobs)
			r.Get("/ingest/jobs/{jobID}", d.ingestion.GetJob)
			r.Get("/documents/{documentID}", d.ingestion.GetDocument)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleProductManager))
			r.Get("/conflicts", d.admin.ListConflicts)
			r.Post("/conflicts/{conflictID}/resolve", d.admin.ResolveConflict)
			r.Get("/registry/pending", d.admin.PendingSpecs)
			r.Post("/registry/{canonicalName}/approve", d.admin.ApproveSpec)
			r.Get("/stats", d.admin.Stats)
			r.Get("/audit/{resourceType}/{resourceID}", d.admin.Audit)
		})
	})

	return r
}
