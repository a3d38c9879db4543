package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"InsightBlitz/internal/auth"
	"InsightBlitz/internal/config"
)

// SetupRoutes configures all API routes. Everything under /api carries
// the bearer auth middleware; /health stays open for probes.
func SetupRoutes(cfg config.ServerConfig, h *Handlers, authManager *auth.Manager) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		if authManager != nil {
			r.Use(authManager.Middleware)
		}

		r.Get("/domains", h.GetDomains)
		r.Route("/domains/{domain}", func(r chi.Router) {
			r.Get("/", h.GetDomain)
			r.Get("/insights", h.GetDomainInsights)
		})

		r.Get("/insights", h.GetRecentInsights)
		r.Get("/status", h.GetStatus)

		r.Route("/engine", func(r chi.Router) {
			r.Post("/start", h.StartEngine)
			r.Post("/stop", h.StopEngine)
		})

		r.Get("/cache/stats", h.GetCacheStats)
		r.Post("/keys", h.CreateKey)
	})

	// chi renders its own 404s as text; keep API consumers on JSON
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
