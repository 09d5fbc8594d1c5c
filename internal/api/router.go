package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/bridge", s.handleBridgeMetrics)

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Get("/{id}", s.handleGetSnapshot)
		})

		// Catalog reads. Each accepts ?snapshot=<id>; the latest snapshot
		// of the configured database is used otherwise.
		r.Get("/nodes", s.handleListNodes)
		r.Get("/nodes/{name}", s.handleGetNode)

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", s.handleListMessages)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMessage)
				r.Get("/signals/{name}", s.handleGetSignal)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"database": s.databaseName,
	})
}
