package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/starford/vaultscribe/internal/noteservice"
	"github.com/starford/vaultscribe/internal/splicer"
)

// multipartOverhead is allowed on top of the audio size limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

// UploadAudio handles POST /api/audio (multipart/form-data, field "file",
// optional field "note" naming a note to embed the upload in).
//
//	@Summary		Upload an audio file into the vault
//	@Tags			audio
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Audio file"
//	@Param			note	formData	string	false	"Note to embed the file in"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/audio [post]
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxUploadBytes() + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	up, err := h.svc.UploadAudio(r.Context(), noteservice.UploadRequest{
		Filename: header.Filename,
		Data:     data,
		Note:     r.FormValue("note"),
	})
	if err != nil {
		writeError(w, err, "upload audio", header.Filename)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// ServeAudio handles GET /api/audio/* and streams an audio file from the
// vault with range support.
func (h *Handler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	f, data, err := h.svc.ReadAudio(r.Context(), path)
	if err != nil {
		writeError(w, err, "serve audio", path)
		return
	}
	w.Header().Set("Content-Type", splicer.MimeType(f.Ext()))
	http.ServeContent(w, r, f.Name, f.UpdatedAt, bytes.NewReader(data))
}
