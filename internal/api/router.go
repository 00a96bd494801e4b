// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the routing-level knobs from service configuration.
type RouterConfig struct {
	CORSOrigins        []string
	RateLimitPerMinute int
}

// NewRouter assembles the full middleware stack and route table.
func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}))
	r.Use(requestLogger)

	r.Get("/healthz", handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))

		r.Post("/worlds", handler.CreateWorld)
		r.Get("/worlds/{worldID}", handler.GetWorld)
		r.Post("/worlds/{worldID}/generate", handler.GenerateWorld)
		r.Post("/worlds/{worldID}/regenerate", handler.RegenerateWorld)
		r.Get("/users/{ownerID}/world", handler.GetOwnerWorld)
		r.Get("/jobs/{jobID}", handler.GetJob)
	})

	return r
}
