package noteservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/vaultscribe/internal/apperr"
	"github.com/starford/vaultscribe/internal/models"
	"github.com/starford/vaultscribe/internal/parser"
	"github.com/starford/vaultscribe/internal/splicer"
)

// DefaultMaxUploadBytes is the upload cap when none is configured.
const DefaultMaxUploadBytes = 100 << 20 // 100 MB

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// UploadRequest describes audio to store in the vault.
type UploadRequest struct {
	Filename string
	Data     []byte
	// Note, when set, gets an embed of the stored file appended.
	Note string
}

// Upload is the result of a stored upload.
type Upload struct {
	File  models.File `json:"file"`
	Embed string      `json:"embed"`
	Note  string      `json:"note,omitempty"`
}

// UploadAudio validates and stores an audio file under the audio folder.
// Existing files are never overwritten. When req.Note is set the note must
// exist and receives an embed of the new file, ready for transcription.
func (s *Service) UploadAudio(ctx context.Context, req UploadRequest) (*Upload, error) {
	name := SanitizeFilename(req.Filename)
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "" || !slices.Contains(s.Extensions(), ext) {
		return nil, fmt.Errorf("noteservice: unsupported audio extension %q (allowed: %s): %w",
			ext, strings.Join(s.Extensions(), ", "), apperr.ErrInvalidInput)
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("noteservice: empty audio file: %w", apperr.ErrInvalidInput)
	}
	if int64(len(req.Data)) > s.maxUpload {
		return nil, fmt.Errorf("noteservice: file too large: %d bytes (max %d): %w",
			len(req.Data), s.maxUpload, apperr.ErrInvalidInput)
	}
	if err := SniffAudio(req.Data, ext); err != nil {
		return nil, fmt.Errorf("noteservice: %v: %w", err, apperr.ErrInvalidInput)
	}

	note := strings.TrimSpace(req.Note)
	if note != "" {
		if _, err := s.store.Stat(note); err != nil {
			return nil, fmt.Errorf("noteservice: note %s: %w", note, apperr.ErrNotFound)
		}
	}

	savePath := path.Join(s.audioDir, name)
	if _, err := s.store.Stat(savePath); err == nil {
		return nil, fmt.Errorf("noteservice: %s: %w", savePath, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(savePath, req.Data); err != nil {
		return nil, fmt.Errorf("noteservice: save audio: %w", err)
	}
	f, err := s.store.Stat(savePath)
	if err != nil {
		return nil, fmt.Errorf("noteservice: stat audio: %w", err)
	}
	if c, ok := s.files.(Cataloguer); ok {
		if err := c.UpsertFile(f); err != nil {
			return nil, fmt.Errorf("noteservice: index audio: %w", err)
		}
	}

	// The full path resolves exactly, so an older file with the same name
	// elsewhere in the vault cannot shadow the upload.
	out := &Upload{File: f, Embed: parser.EmbedToken(savePath)}
	if note == "" {
		return out, nil
	}
	err = s.runner.Do(ctx, note, func() error {
		data, err := s.store.Read(note)
		if err != nil {
			return err
		}
		return s.store.Write(note, []byte(splicer.AppendSection(string(data), out.Embed+"\n")))
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = apperr.ErrNotFound
		}
		return nil, fmt.Errorf("noteservice: attach to %s: %w", note, err)
	}
	out.Note = note
	return out, nil
}

// SanitizeFilename strips path separators and unsafe characters. An empty
// result gets a random name.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	switch {
	case name == "" || name == "." || name == "..":
		name = uuid.NewString()
	case strings.HasPrefix(name, "."):
		name = uuid.NewString() + name
	}
	return name
}

// audioSignatures maps an extension to a check of the file's leading bytes.
var audioSignatures = map[string]func([]byte) bool{
	"m4a": isISOBMFF,
	"mp4": isISOBMFF,
	"aac": func(b []byte) bool { return isISOBMFF(b) || (len(b) > 1 && b[0] == 0xFF && b[1]&0xF6 == 0xF0) },
	"mp3": func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("ID3")) || (len(b) > 1 && b[0] == 0xFF && b[1]&0xE0 == 0xE0)
	},
	"wav": func(b []byte) bool {
		return len(b) >= 12 && bytes.HasPrefix(b, []byte("RIFF")) && string(b[8:12]) == "WAVE"
	},
	"ogg":  func(b []byte) bool { return bytes.HasPrefix(b, []byte("OggS")) },
	"opus": func(b []byte) bool { return bytes.HasPrefix(b, []byte("OggS")) },
	"flac": func(b []byte) bool { return bytes.HasPrefix(b, []byte("fLaC")) },
	"webm": func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x1A, 0x45, 0xDF, 0xA3}) },
}

func isISOBMFF(b []byte) bool {
	return len(b) >= 12 && string(b[4:8]) == "ftyp"
}

// SniffAudio verifies that data looks like the container its extension
// claims. Extensions without a known signature pass.
func SniffAudio(data []byte, ext string) error {
	check, ok := audioSignatures[strings.ToLower(ext)]
	if !ok || check(data) {
		return nil
	}
	return fmt.Errorf("content does not match extension .%s", ext)
}

// ReadAudio returns an audio file from the vault. Files whose extension is not
// on the allow-list are reported as not found.
func (s *Service) ReadAudio(_ context.Context, p string) (models.File, []byte, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if !slices.Contains(s.Extensions(), ext) {
		return models.File{}, nil, fmt.Errorf("noteservice: %s: %w", p, apperr.ErrNotFound)
	}
	f, err := s.store.Stat(p)
	if err != nil {
		return models.File{}, nil, fmt.Errorf("noteservice: %s: %w", p, apperr.ErrNotFound)
	}
	data, err := s.store.Read(f.Path)
	if err != nil {
		return models.File{}, nil, fmt.Errorf("noteservice: read audio: %w", err)
	}
	return f, data, nil
}
