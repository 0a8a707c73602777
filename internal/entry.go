// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultscribe/internal/api"
	"github.com/starford/vaultscribe/internal/gemini"
	"github.com/starford/vaultscribe/internal/index"
	"github.com/starford/vaultscribe/internal/mcpserver"
	"github.com/starford/vaultscribe/internal/noteservice"
	"github.com/starford/vaultscribe/internal/notify"
	"github.com/starford/vaultscribe/internal/resolver"
	"github.com/starford/vaultscribe/internal/splicer"
	"github.com/starford/vaultscribe/internal/sse"
	"github.com/starford/vaultscribe/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// textLogger is used by commands whose stdout belongs to the user or to the
// MCP protocol.
func (a *application) textLogger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: a.config.App.LogLevel}))
}

func (a *application) jsonLogger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: a.config.App.LogLevel}))
}

// runtime is the wired object graph shared by every command.
type runtime struct {
	store *storage.FS
	db    *index.DB // nil when the index is disabled
	svc   *noteservice.Service
}

func (rt *runtime) Close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// backends returns the transcriber and title summarizer, preferring the
// overrides given as options over the Gemini client.
func (a *application) backends() (splicer.Transcriber, splicer.TitleSummarizer) {
	transcriber, titles := a.transcriber, a.titles
	if transcriber == nil {
		client := gemini.New(a.config.Gemini.ClientConfig())
		transcriber = client
		if titles == nil {
			titles = client
		}
	}
	return transcriber, titles
}

// bootstrap opens the vault and the index and builds the splicer.
func (a *application) bootstrap(logger *slog.Logger, notifier notify.Notifier, hook splicer.WriteHook) (*runtime, error) {
	cfg := a.config

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("model", cfg.Gemini.Model),
		slog.Any("extensions", cfg.Transcription.Extensions),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &runtime{store: store}
	var files resolver.FileIndex = resolver.NewStoreIndex(store)
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		files = db

		stats, err := index.Sync(db, store, logger)
		if err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		} else {
			logger.Info("Index synced",
				slog.Int("indexed", stats.Indexed),
				slog.Int("removed", stats.Removed),
				slog.Int("total", stats.Total))
		}
	}

	transcriber, titles := a.backends()
	opts := []splicer.Option{
		splicer.WithLogger(logger),
		splicer.WithNotifier(notifier),
		splicer.WithExtensions(cfg.Transcription.Extensions),
		splicer.WithPrompt(cfg.Transcription.Prompt),
		splicer.WithWriteHook(hook),
	}
	if cfg.Transcription.SummarizeTitle && titles != nil {
		opts = append(opts, splicer.WithTitleSummarizer(titles))
	}
	sp := splicer.New(store, files, transcriber, opts...)

	rt.svc = noteservice.NewService(store, files, splicer.NewRunner(sp),
		noteservice.WithAudioDir(cfg.Vault.AudioDir),
		noteservice.WithMaxUploadBytes(cfg.Transcription.MaxUploadMB<<20))
	return rt, nil
}

// watch keeps the index in step with the vault until ctx is done.
func (rt *runtime) watch(ctx context.Context, logger *slog.Logger, cb index.EventCallback) error {
	if rt.db == nil {
		return nil
	}
	if err := index.Watch(ctx, rt.db, rt.store, logger, cb); err != nil {
		logger.Error("file watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Transcribe runs one batch on notePath, or on vault.active_note when
// notePath is empty, and prints the outcome.
func Transcribe(ctx context.Context, notePath string, opts ...Option) (*splicer.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.textLogger()

	if notePath == "" {
		notePath = app.config.Vault.ActiveNote
	}

	// Refuse before the vault directory, the index or the note are touched.
	transcriber, _ := app.backends()
	if err := splicer.Ready(notePath, transcriber); err != nil {
		notify.NewLog(logger).Notify(ctx, notify.Notice{
			Level:   notify.LevelError,
			Message: splicer.ReadyMessage(err),
			Note:    notePath,
			Time:    time.Now(),
		})
		return nil, fmt.Errorf("transcribe %s: %w", notePath, err)
	}

	rt, err := app.bootstrap(logger, notify.NewLog(logger), nil)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	report, err := rt.svc.Transcribe(ctx, notePath)
	if report != nil {
		_, _ = fmt.Fprintln(app.out, report.Summary())
	}
	if err != nil {
		return report, fmt.Errorf("transcribe %s: %w", notePath, err)
	}
	return report, nil
}

// ServeMCP serves the MCP tools over stdin/stdout until the input closes or
// ctx is cancelled.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.textLogger()

	rt, err := app.bootstrap(logger, notify.NewLog(logger), nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := mcpserver.New(rt.svc, app.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rt.watch(gCtx, logger, nil)
	})
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server listening on stdio")
		if err := srv.ServeStdio(gCtx, os.Stdin, app.out, logger); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.jsonLogger()
	slog.SetDefault(logger)

	// SSE broker carries notices, note rewrites and vault file changes.
	broker := sse.NewBroker()
	defer broker.Close()

	notifier := notify.Multi{notify.NewLog(logger), broker}
	rt, err := app.bootstrap(logger, notifier, func(note, batchID string) {
		broker.PublishNoteUpdated(note, batchID)
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if rt.db != nil {
			if _, err := rt.db.Count(); err != nil {
				writeHealth(w, http.StatusServiceUnavailable, "index unavailable")
				return
			}
		}
		writeHealth(w, http.StatusOK, "ok")
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return rt.watch(gCtx, logger, broker.PublishFileEvent)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()
		// Ends open SSE streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func writeHealth(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, msg)
}
