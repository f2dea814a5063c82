/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP from proxy headers
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request duration/count
  6. CORS:       Cross-origin requests for the web frontend

ROUTE GROUPS:
  /api/users/*       Users, points, history, per-user projections
  /api/progress      Watch progress reports (the accrual entry point)
  /api/content/*     Catalog browse
  /api/series/*      Series + episodes browse
  /api/challenges/*  Challenge listings and advancement
  /api/admin/*       Badge awards, challenge sweep
  /metrics           Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/points", h.GetPoints)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/progress", h.GetUserProgress)
			r.Get("/{id}/challenges", h.GetUserChallenges)
			r.Get("/{id}/badges", h.GetUserBadges)
		})

		// Accrual routes
		r.Post("/progress", h.SubmitProgress)
		r.Post("/list", h.SetList)
		r.Post("/rating", h.Rate)
		r.Post("/badges/display", h.DisplayBadge)

		// Catalog routes
		r.Route("/content", func(r chi.Router) {
			r.Get("/", h.ListContent)
			r.Get("/featured", h.FeaturedContent)
			r.Get("/genre/{genre}", h.ContentByGenre)
			r.Get("/{id}", h.GetContent)
		})
		r.Route("/series", func(r chi.Router) {
			r.Get("/", h.ListSeries)
			r.Get("/featured", h.FeaturedSeries)
			r.Get("/{id}", h.GetSeries)
			r.Get("/{id}/episodes", h.GetSeriesEpisodes)
		})

		// Challenge routes
		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", h.ListChallenges)
			r.Post("/advance", h.AdvanceChallenge)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/badges/award", h.AwardBadge)
			r.Post("/challenges/sweep", h.SweepChallenges)
		})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
