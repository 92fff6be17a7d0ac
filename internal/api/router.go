// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/dashforge/internal/middleware"
)

// NewRouter builds the chi route tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(h.mw.RateLimitHealth())
		r.Get("/", h.Health)
	})

	// The stream is long-lived; compression and request metrics would wrap
	// the hijacked connection for its whole lifetime.
	r.Get("/api/v1/ws", h.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Compression)

		r.Post("/queries/generate", h.GenerateQueries)

		r.Route("/visualizations", func(r chi.Router) {
			r.Get("/", h.ListWatches)
			r.Get("/{id}", h.GetVisualization)
			r.Post("/{id}/resolve", h.ResolveVisualization)
			r.Put("/{id}/watch", h.WatchVisualization)
			r.Delete("/{id}/watch", h.UnwatchVisualization)
			r.Post("/{id}/focus", h.FocusVisualization)
		})

		r.Route("/datastore/{namespace}", func(r chi.Router) {
			r.Get("/", h.DatastoreKeys)
			r.Get("/{key}", h.DatastoreGet)
			r.Put("/{key}", h.DatastorePut)
			r.Delete("/{key}", h.DatastoreDelete)
		})

		r.Get("/cache", h.CacheStats)
		r.Delete("/cache", h.InvalidateCache)

		r.Route("/search/{index}/documents", func(r chi.Router) {
			r.Post("/", h.IndexSearchDocument)
			r.Delete("/{docID}", h.DeleteSearchDocument)
		})
	})

	return r
}
