// Package gemini transcribes audio and summarises transcripts into titles
// with the Gemini API, through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/"
	DefaultModel   = "gemini-1.5-pro"

	apiVersion = "v1beta"

	titlePrompt = "Write a short descriptive title (at most eight words) for the following transcript. " +
		"Reply with the title only, without quotes or punctuation at the end.\n\n"
)

var errNoAPIKey = errors.New("api key is not set")

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	TitleModel string
	BaseURL    string
	// Timeout bounds one API call. Zero means no timeout.
	Timeout time.Duration
}

// Client calls the Gemini API. A single attempt is made per call.
type Client struct {
	cfg    Config
	models *genai.Models
	err    error
}

// New creates a client. Empty model and base URL fields take defaults. A
// client without an API key is not Configured and fails every call.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = cfg.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	c := &Client{cfg: cfg}
	if cfg.APIKey == "" {
		c.err = errNoAPIKey
		return c
	}
	// The SDK makes no request while constructing the client.
	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		c.err = fmt.Errorf("gemini: new client: %w", err)
		return c
	}
	c.models = gc.Models
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Transcribe sends the audio inline with the prompt and returns the text reply.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType, prompt string) (string, error) {
	var parts []*genai.Part
	if prompt != "" {
		parts = append(parts, genai.NewPartFromText(prompt))
	}
	parts = append(parts, genai.NewPartFromBytes(audio, mimeType))
	text, err := c.generate(ctx, c.cfg.Model, parts)
	if err != nil {
		return "", fmt.Errorf("gemini: transcribe: %w", err)
	}
	return text, nil
}

// SummarizeTitle asks for a short title describing transcript.
func (c *Client) SummarizeTitle(ctx context.Context, transcript string) (string, error) {
	text, err := c.generate(ctx, c.cfg.TitleModel, []*genai.Part{genai.NewPartFromText(titlePrompt + transcript)})
	if err != nil {
		return "", fmt.Errorf("gemini: summarize title: %w", err)
	}
	return CleanTitle(text), nil
}

// CleanTitle reduces a model reply to a single-line heading: first non-empty
// line, without Markdown heading marks, surrounding quotes or a trailing period.
func CleanTitle(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#")
		line = strings.TrimSpace(line)
		line = strings.TrimSuffix(line, ".")
		line = strings.Trim(line, "\"'`*")
		line = strings.TrimSuffix(line, ".")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func (c *Client) generate(ctx context.Context, model string, parts []*genai.Part) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("http %d: %s", apiErr.Code, apiErr.Message)
		}
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
