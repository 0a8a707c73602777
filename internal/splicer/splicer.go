// Package splicer replaces audio wikilinks in a note with transcript sections.
//
// A batch reads the note once to collect references, then handles them one at
// a time: resolve the audio file, transcribe it, re-read the note, remove the
// original token, append the transcript section and write the note back.
// Every reference's edit is persisted before the next one starts, so a batch
// that fails halfway keeps the transcripts it already produced.
package splicer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/vaultscribe/internal/apperr"
	"github.com/starford/vaultscribe/internal/notify"
	"github.com/starford/vaultscribe/internal/parser"
	"github.com/starford/vaultscribe/internal/resolver"
	"github.com/starford/vaultscribe/internal/storage"
)

// DefaultPrompt is sent alongside the audio when no prompt is configured.
const DefaultPrompt = "Please give me the transcript of this in paragraph format without timestamps and also break up the paragraphs"

// Transcriber turns audio into text.
type Transcriber interface {
	// Configured reports whether the credential needed to call out is present.
	Configured() bool
	Transcribe(ctx context.Context, audio []byte, mimeType, prompt string) (string, error)
}

// TitleSummarizer produces a short descriptive title for a transcript.
type TitleSummarizer interface {
	SummarizeTitle(ctx context.Context, transcript string) (string, error)
}

// Ready reports whether a batch on notePath can start. It touches nothing:
// an empty path gives apperr.ErrNoActiveNote and a transcriber without its
// credential gives apperr.ErrMissingCredential.
func Ready(notePath string, t Transcriber) error {
	if strings.TrimSpace(notePath) == "" {
		return apperr.ErrNoActiveNote
	}
	if t == nil || !t.Configured() {
		return apperr.ErrMissingCredential
	}
	return nil
}

// ReadyMessage is the user notice for an error returned by Ready.
func ReadyMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNoActiveNote):
		return "No active note"
	case errors.Is(err, apperr.ErrMissingCredential):
		return "API key is not set. Please set gemini.api_key in the configuration."
	default:
		return err.Error()
	}
}

// Status is the outcome of one reference.
type Status string

const (
	StatusTranscribed Status = "transcribed"
	StatusNotFound    Status = "not_found"
	StatusFailed      Status = "failed"
)

// Outcome records what happened to one reference.
type Outcome struct {
	Reference parser.Reference `json:"reference"`
	Status    Status           `json:"status"`
	Path      string           `json:"path,omitempty"`
	Method    resolver.Method  `json:"method,omitempty"`
	Heading   string           `json:"heading,omitempty"`
	Removed   bool             `json:"removed"`
	Error     string           `json:"error,omitempty"`
}

// Report summarises a batch.
type Report struct {
	ID         string    `json:"id"`
	Note       string    `json:"note"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Count returns the number of outcomes with the given status.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// WriteHook is called after a note has been rewritten.
type WriteHook func(notePath, batchID string)

// Option configures a Splicer.
type Option func(*Splicer)

// WithTitleSummarizer enables descriptive headings.
func WithTitleSummarizer(ts TitleSummarizer) Option {
	return func(s *Splicer) { s.titles = ts }
}

// WithNotifier sets where user notices go. Without one, notices are logged.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Splicer) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Splicer) { s.logger = l }
}

// WithExtensions sets the audio extension allow-list.
func WithExtensions(exts []string) Option {
	return func(s *Splicer) { s.extensions = parser.NormalizeExtensions(exts) }
}

// WithPrompt sets the prompt hint sent with each audio file.
func WithPrompt(p string) Option {
	return func(s *Splicer) { s.prompt = p }
}

// WithWriteHook registers a callback fired after each note write.
func WithWriteHook(h WriteHook) Option {
	return func(s *Splicer) { s.onWrite = h }
}

// Splicer runs transcription batches against notes in a vault.
type Splicer struct {
	store       storage.Provider
	index       resolver.FileIndex
	transcriber Transcriber
	titles      TitleSummarizer
	notifier    notify.Notifier
	logger      *slog.Logger
	extensions  []string
	prompt      string
	onWrite     WriteHook
}

// New creates a Splicer. store holds the notes and audio, idx resolves
// references, and t performs transcription.
func New(store storage.Provider, idx resolver.FileIndex, t Transcriber, opts ...Option) *Splicer {
	s := &Splicer{
		store:       store,
		index:       idx,
		transcriber: t,
		logger:      slog.Default(),
		extensions:  parser.DefaultExtensions,
		prompt:      DefaultPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extensions returns the active audio allow-list.
func (s *Splicer) Extensions() []string {
	return s.extensions
}

// Process transcribes every audio reference in the note at notePath.
//
// It fails without touching the vault when notePath is empty
// (apperr.ErrNoActiveNote), when the transcriber has no credential
// (apperr.ErrMissingCredential) or when the note cannot be read. Problems
// with individual references are recorded in the report and the batch moves
// on. Cancelling ctx stops the batch before the next reference.
func (s *Splicer) Process(ctx context.Context, notePath string) (*Report, error) {
	notePath = strings.TrimSpace(notePath)
	if err := Ready(notePath, s.transcriber); err != nil {
		s.notify(ctx, notify.LevelError, notePath, "", ReadyMessage(err))
		return nil, err
	}

	report := &Report{
		ID:        uuid.NewString(),
		Note:      notePath,
		Outcomes:  []Outcome{},
		StartedAt: time.Now(),
	}

	data, err := s.store.Read(notePath)
	if err != nil {
		s.notify(ctx, notify.LevelError, notePath, report.ID, "Cannot read note: "+notePath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("splicer: note %s: %w", notePath, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("splicer: read note: %w", err)
	}

	refs := parser.ExtractAudioLinks(string(data), s.extensions)
	s.logger.Info("batch started",
		slog.String("batch_id", report.ID),
		slog.String("note", notePath),
		slog.Int("references", len(refs)))

	if len(refs) == 0 {
		s.notify(ctx, notify.LevelInfo, notePath, report.ID, "No audio links found")
		report.FinishedAt = time.Now()
		return report, nil
	}

	// tail is the text this batch has appended to the note so far. Token
	// removal never searches inside it.
	var tail string
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			s.notify(ctx, notify.LevelWarn, notePath, report.ID, "Transcription cancelled")
			return report, fmt.Errorf("splicer: %w", err)
		}
		var out Outcome
		out, tail = s.processOne(ctx, notePath, report.ID, ref, tail)
		report.Outcomes = append(report.Outcomes, out)
	}

	report.FinishedAt = time.Now()
	s.logger.Info("batch finished",
		slog.String("batch_id", report.ID),
		slog.String("note", notePath),
		slog.Int("transcribed", report.Count(StatusTranscribed)),
		slog.Int("not_found", report.Count(StatusNotFound)),
		slog.Int("failed", report.Count(StatusFailed)),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	s.notify(ctx, notify.LevelInfo, notePath, report.ID, fmt.Sprintf("Transcribed %d of %d audio links",
		report.Count(StatusTranscribed), len(report.Outcomes)))
	return report, nil
}

func (s *Splicer) processOne(ctx context.Context, notePath, batchID string, ref parser.Reference, tail string) (Outcome, string) {
	out := Outcome{Reference: ref}
	basename := ref.Basename()

	res, err := resolver.Resolve(ref, s.index)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			out.Status = StatusNotFound
			out.Error = err.Error()
			s.notify(ctx, notify.LevelWarn, notePath, batchID, "Audio file not found: "+ref.Raw)
			return out, tail
		}
		return s.fail(ctx, out, notePath, batchID, "Cannot resolve "+ref.Raw, err), tail
	}
	out.Path = res.File.Path
	out.Method = res.Method
	if res.Method == resolver.MethodBasename {
		s.notify(ctx, notify.LevelInfo, notePath, batchID, fmt.Sprintf("Found %s at %s", basename, res.File.Path))
	}

	audio, err := s.store.Read(res.File.Path)
	if err != nil {
		return s.fail(ctx, out, notePath, batchID, "Cannot read audio file "+res.File.Path, err), tail
	}

	text, err := s.transcriber.Transcribe(ctx, audio, MimeType(res.File.Ext()), s.prompt)
	if err != nil {
		return s.fail(ctx, out, notePath, batchID, "Transcription error", err), tail
	}

	out.Heading = s.heading(ctx, notePath, batchID, basename, text)
	section := BuildSection(out.Heading, basename, text)

	// Re-read: the previous iteration or someone else may have changed it.
	current, err := s.store.Read(notePath)
	if err != nil {
		return s.fail(ctx, out, notePath, batchID, "Cannot re-read note", err), tail
	}
	doc := string(current)
	protected := 0
	if tail != "" && strings.HasSuffix(doc, tail) {
		protected = len(tail)
	}
	updated, protected, removed := Splice(doc, protected, ref.Raw, section)
	if err := s.store.Write(notePath, []byte(updated)); err != nil {
		return s.fail(ctx, out, notePath, batchID, "Cannot write note", err), tail
	}
	if s.onWrite != nil {
		s.onWrite(notePath, batchID)
	}

	out.Status = StatusTranscribed
	out.Removed = removed
	s.notify(ctx, notify.LevelInfo, notePath, batchID, "Transcript added for "+basename)
	return out, updated[len(updated)-protected:]
}

// heading asks for a descriptive title and falls back to DefaultHeading when
// none is configured, the transcript is blank, the call fails or the reply is
// empty.
func (s *Splicer) heading(ctx context.Context, notePath, batchID, basename, transcript string) string {
	fallback := DefaultHeading(basename)
	if s.titles == nil || strings.TrimSpace(transcript) == "" {
		return fallback
	}
	title, err := s.titles.SummarizeTitle(ctx, transcript)
	if err != nil {
		s.notify(ctx, notify.LevelWarn, notePath, batchID,
			fmt.Sprintf("Title generation failed for %s: %v", basename, err))
		return fallback
	}
	title = strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	if title == "" {
		return fallback
	}
	return title
}

func (s *Splicer) fail(ctx context.Context, out Outcome, notePath, batchID, msg string, err error) Outcome {
	out.Status = StatusFailed
	out.Error = err.Error()
	s.notify(ctx, notify.LevelError, notePath, batchID, fmt.Sprintf("%s: %v", msg, err))
	return out
}

func (s *Splicer) notify(ctx context.Context, level notify.Level, notePath, batchID, msg string) {
	n := notify.Notice{
		Level:   level,
		Message: msg,
		Note:    notePath,
		BatchID: batchID,
		Time:    time.Now(),
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
		return
	}
	notify.NewLog(s.logger).Notify(ctx, n)
}
