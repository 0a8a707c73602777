package api

import (
	"github.com/starford/vaultscribe/internal/noteservice"
	"github.com/starford/vaultscribe/internal/splicer"
)

// TranscribeResponse is the batch report returned by POST /transcribe/*.
type TranscribeResponse = splicer.Report

// LinkItem is one audio reference in a links response.
type LinkItem = noteservice.Link

// LinksResponse lists the audio references of a note.
type LinksResponse struct {
	Note  string     `json:"note" example:"daily/2024-05-01.md" validate:"required"`
	Links []LinkItem `json:"links" validate:"required"`
}

// UploadResponse is returned after a successful audio upload.
type UploadResponse = noteservice.Upload
