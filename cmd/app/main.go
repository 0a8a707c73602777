package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vaultscribe/internal"
	"github.com/starford/vaultscribe/internal/splicer"
	pkgconfig "github.com/starford/vaultscribe/pkg/config"
)

var version = "dev"

// loadConfig reads the config file named by --config and applies the command
// line overrides. A missing file leaves the defaults in place so the tool
// works with environment variables alone.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if cmd.Bool("no-index") {
		cfg.Index.Enabled = false
	}
	if p := cmd.Int("port"); p != 0 {
		cfg.App.HTTP.Port = int(p)
	}
	if cmd.Bool("titles") {
		cfg.Transcription.SummarizeTitle = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func transcribe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Transcribe(ctx, cmd.Args().First(),
		internal.WithConfig(cfg),
		internal.WithVersion(version))
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	if n := len(report.Outcomes) - report.Count(splicer.StatusTranscribed); n > 0 {
		return cli.Exit(fmt.Sprintf("%d audio link(s) were not transcribed", n), 2)
	}
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "vaultscribe",
		Usage:   "Transcribe audio wikilinks in Markdown notes and splice the transcripts into the note",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("VAULTSCRIBE_VAULT"),
			},
			&cli.BoolFlag{
				Name:  "no-index",
				Usage: "Resolve links by walking the vault instead of the SQLite index",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "transcribe",
				Usage:     "Transcribe every audio link in a note (defaults to vault.active_note)",
				ArgsUsage: "[note]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "titles",
						Usage: "Ask the model for a short title for each transcript section",
					},
				},
				Action: transcribe,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP API with live notifications",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP port (overrides app.http.port)",
					},
				},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the transcription tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}
}

func main() {
	cmd := newCommand()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Run(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
