// Package noteservice is the shared application layer behind the HTTP API,
// the MCP server and the CLI: it runs transcription batches on notes, reports
// the audio links a note contains and stores uploaded audio in the vault.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/starford/vaultscribe/internal/apperr"
	"github.com/starford/vaultscribe/internal/models"
	"github.com/starford/vaultscribe/internal/parser"
	"github.com/starford/vaultscribe/internal/resolver"
	"github.com/starford/vaultscribe/internal/splicer"
	"github.com/starford/vaultscribe/internal/storage"
)

// DefaultAudioDir is where uploaded audio lands unless configured otherwise.
const DefaultAudioDir = "attachments"

// Cataloguer is implemented by file indexes that can learn about a file
// immediately instead of waiting for the watcher.
type Cataloguer interface {
	UpsertFile(f models.File) error
}

// Link is one audio reference found in a note together with where it
// currently resolves.
type Link struct {
	Raw      string          `json:"raw"`
	Embed    bool            `json:"embed"`
	Offset   int             `json:"offset"`
	Resolved bool            `json:"resolved"`
	Path     string          `json:"path,omitempty"`
	Method   resolver.Method `json:"method,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithAudioDir sets the vault folder uploads are written to.
func WithAudioDir(dir string) Option {
	return func(s *Service) {
		if dir = strings.Trim(strings.TrimSpace(dir), "/"); dir != "" {
			s.audioDir = dir
		}
	}
}

// WithMaxUploadBytes caps the size of uploaded audio.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// Service coordinates storage, the file index and the splicer.
type Service struct {
	store     storage.Provider
	files     resolver.FileIndex
	runner    *splicer.Runner
	audioDir  string
	maxUpload int64
}

// NewService creates a new note service.
func NewService(store storage.Provider, files resolver.FileIndex, runner *splicer.Runner, opts ...Option) *Service {
	s := &Service{
		store:     store,
		files:     files,
		runner:    runner,
		audioDir:  DefaultAudioDir,
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extensions returns the audio extensions links are matched against.
func (s *Service) Extensions() []string {
	return s.runner.Splicer().Extensions()
}

// MaxUploadBytes returns the upload size limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUpload
}

// Transcribe runs a transcription batch on notePath.
func (s *Service) Transcribe(ctx context.Context, notePath string) (*splicer.Report, error) {
	return s.runner.Process(ctx, notePath)
}

// Links lists the audio references in notePath and resolves each one without
// transcribing anything.
func (s *Service) Links(_ context.Context, notePath string) ([]Link, error) {
	notePath = strings.TrimSpace(notePath)
	if notePath == "" {
		return nil, apperr.ErrNoActiveNote
	}
	data, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("noteservice: note %s: %w", notePath, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("noteservice: read note: %w", err)
	}

	refs := parser.ExtractAudioLinks(string(data), s.Extensions())
	links := make([]Link, 0, len(refs))
	for _, ref := range refs {
		l := Link{Raw: ref.Raw, Embed: ref.Embed, Offset: ref.Offset}
		res, err := resolver.Resolve(ref, s.files)
		switch {
		case err == nil:
			l.Resolved = true
			l.Path = res.File.Path
			l.Method = res.Method
		case errors.Is(err, apperr.ErrNotFound):
			l.Error = "not found"
		default:
			return nil, fmt.Errorf("noteservice: resolve %s: %w", ref.Raw, err)
		}
		links = append(links, l)
	}
	return links, nil
}
