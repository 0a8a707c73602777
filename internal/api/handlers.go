package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultscribe/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the vault path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. daily%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Transcribe handles POST /api/transcribe/*.
//
//	@Summary		Transcribe every audio link in a note
//	@Description	Links are processed one at a time and the note is saved after each one.
//	@Tags			transcription
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	TranscribeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		412		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transcribe/{path} [post]
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	// A dropped client does not abort a batch that has started.
	report, err := h.svc.Transcribe(context.WithoutCancel(r.Context()), path)
	if err != nil {
		writeError(w, err, "transcribe", path)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Links handles GET /api/links/*.
//
//	@Summary		List the audio links of a note and where they resolve
//	@Tags			transcription
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	LinksResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{path} [get]
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	links, err := h.svc.Links(r.Context(), path)
	if err != nil {
		writeError(w, err, "list links", path)
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{Note: path, Links: links})
}
