package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultscribe/internal/gemini"
	"github.com/starford/vaultscribe/internal/noteservice"
	"github.com/starford/vaultscribe/internal/parser"
	"github.com/starford/vaultscribe/internal/splicer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App           ApplicationConfig   `yaml:"app"`
	Vault         VaultConfig         `yaml:"vault"`
	SQLite        SQLiteConfig        `yaml:"sqlite"`
	Index         IndexConfig         `yaml:"index"`
	Auth          AuthConfig          `yaml:"auth"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Gemini        GeminiConfig        `yaml:"gemini"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if c.Index.Enabled {
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Transcription.Validate(); err != nil {
		return err
	}
	return c.Gemini.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the Markdown vault.
//
// ActiveNote is the note the transcribe command works on when no path is
// given on the command line. AudioDir is where uploaded audio is stored.
type VaultConfig struct {
	Path       string `yaml:"path"`
	ActiveNote string `yaml:"active_note"`
	AudioDir   string `yaml:"audio_dir"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.AudioDir, validation.By(relativePath)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig controls the SQLite file catalogue. When disabled, links are
// resolved by walking the vault on every lookup.
type IndexConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TranscriptionConfig controls which links are picked up and how the
// transcript sections are titled.
type TranscriptionConfig struct {
	Extensions     []string `yaml:"extensions"`
	Prompt         string   `yaml:"prompt"`
	SummarizeTitle bool     `yaml:"summarize_title"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
}

// Validate validates the transcription configuration. Extensions are
// normalised in place.
func (c *TranscriptionConfig) Validate() error {
	c.Extensions = parser.NormalizeExtensions(c.Extensions)
	return validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Required.Error("at least one audio extension is required")),
		validation.Field(&c.MaxUploadMB, validation.Min(int64(0))),
	)
}

// GeminiConfig configures the Gemini transcription backend. An empty APIKey
// is allowed here: the missing credential is reported when a batch starts.
type GeminiConfig struct {
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	TitleModel string        `yaml:"title_model"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate validates the Gemini configuration.
func (c *GeminiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ClientConfig converts the section into a gemini.Config.
func (c *GeminiConfig) ClientConfig() gemini.Config {
	return gemini.Config{
		APIKey:     strings.TrimSpace(c.APIKey),
		Model:      c.Model,
		TitleModel: c.TitleModel,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
	}
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func relativePath(value any) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, "/") || strings.Contains(s, "..") {
		return fmt.Errorf("must be a path inside the vault")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:     "./vault",
			AudioDir: noteservice.DefaultAudioDir,
		},
		SQLite: SQLiteConfig{
			Path: "./vaultscribe.db",
		},
		Index: IndexConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Transcription: TranscriptionConfig{
			Extensions:  slices.Clone(parser.DefaultExtensions),
			Prompt:      splicer.DefaultPrompt,
			MaxUploadMB: noteservice.DefaultMaxUploadBytes >> 20,
		},
		Gemini: GeminiConfig{
			Model:   gemini.DefaultModel,
			BaseURL: gemini.DefaultBaseURL,
		},
	}
}
