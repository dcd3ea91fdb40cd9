package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/darvall/gistcal/internal/eventservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /stream inside the auth group.
func NewRouter(svc *eventservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Ingest.
	r.Post("/upload", h.Upload)

	// Events.
	r.Get("/events", h.ListEvents)
	r.Delete("/events", h.ClearEvents)
	r.Get("/events/{uid}", h.GetEvent)

	// Search.
	r.Get("/search", h.Search)

	// Publishing.
	r.Post("/publish", h.Publish)

	// Pipeline state.
	r.Get("/status", h.Status)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/stream", sseHandler.ServeHTTP)
	}

	return r
}
