package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultscribe/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Transcription batches and link inspection.
	r.Post("/transcribe/*", h.Transcribe)
	r.Get("/links/*", h.Links)

	// Audio files.
	r.Post("/audio", h.UploadAudio)
	r.Get("/audio/*", h.ServeAudio)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
