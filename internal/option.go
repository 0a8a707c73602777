package internal

import (
	"io"
	"log/slog"

	"github.com/starford/vaultscribe/internal/splicer"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	logger      *slog.Logger
	transcriber splicer.Transcriber
	titles      splicer.TitleSummarizer
	out         io.Writer
	version     string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithTranscriber replaces the Gemini client as transcription backend.
func WithTranscriber(t splicer.Transcriber) Option {
	return func(a *application) {
		a.transcriber = t
	}
}

// WithTitleSummarizer replaces the Gemini client as title backend.
func WithTitleSummarizer(ts splicer.TitleSummarizer) Option {
	return func(a *application) {
		a.titles = ts
	}
}

// WithOutput sets where command results are printed.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
