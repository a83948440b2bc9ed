package api

import (
	"strings"

	"github.com/bobarin/podcastgen/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	// BackendAPIKey guards /v1. Empty disables auth (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list; empty allows all.
	CorsAllowedOrigins string
}

func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   parseOrigins(cfg.CorsAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Get("/episodes", h.ListEpisodes)
		r.Post("/episodes", h.CreateEpisode)
		r.Get("/episodes/{id}", h.GetEpisode)
		r.Get("/episodes/{id}/script", h.GetEpisodeScript)
		r.Get("/episodes/{id}/download", h.GetEpisodeDownload)
		r.Get("/episodes/{id}/debug/jobs", h.GetEpisodeJobs)

		r.Get("/presets", h.ListPresets)
	})

	return r
}

func parseOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
