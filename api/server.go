/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the review frontend

ROUTE GROUPS:
  /api/reports/*        Weekly report ingestion, retrieval, overrides
  /api/summary          Week-level aggregates
  /api/history          Audit trail

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Post("/ingest", h.IngestReport)
			r.Get("/", h.GetReports)
			r.Get("/dates", h.ListDates)
			r.Get("/export", h.ExportReports)
			r.Get("/leakage", h.GetLeakage)
			r.Get("/leakage/export", h.ExportLeakage)

			// Manual overrides on a single record
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/close", h.CloseCase)
				r.Post("/billable-hours", h.UpdateBillableHours)
				r.Post("/shortfall", h.SetShortfall)
				r.Post("/comments", h.UpdateComments)
				r.Post("/reviewer-comments", h.UpdateReviewerComments)
			})
		})

		// Aggregates and audit trail
		r.Get("/summary", h.GetSummary)
		r.Get("/history", h.GetHistory)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
