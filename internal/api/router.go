package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/govcal/internal/pipeline"
)

// NewRouter creates a chi router with all API routes mounted.
// The login endpoint is always open; the rest sit behind the passkey gate.
// sseHandler, if non-nil, is mounted at GET /events inside the gate.
func NewRouter(orch *pipeline.Orchestrator, auth AuthConfig, sseHandler http.Handler) chi.Router {
	h := NewHandler(orch, auth)

	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(PasskeyMiddleware(auth))

		r.Post("/extract", h.Extract)
		r.Post("/calendar", h.Calendar)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
