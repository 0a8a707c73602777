package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// wireRequest is the generateContent body as the server receives it.
type wireRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
}

type captured struct {
	path   string
	apiKey string
	req    wireRequest
}

func testServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.apiKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got.req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func textReply(texts ...string) string {
	var parts []string
	for _, s := range texts {
		b, _ := json.Marshal(s)
		parts = append(parts, `{"text":`+string(b)+`}`)
	}
	return `{"candidates":[{"content":{"role":"model","parts":[` + strings.Join(parts, ",") + `]}}]}`
}

func TestTranscribe_SendsInlineAudio(t *testing.T) {
	srv, got := testServer(t, http.StatusOK, textReply("Hello ", "world."))
	c := New(Config{APIKey: "secret", BaseURL: srv.URL})

	text, err := c.Transcribe(context.Background(), []byte("RIFF"), "audio/mp4", "transcribe please")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Hello world." {
		t.Errorf("text = %q", text)
	}
	if got.path != "/v1beta/models/"+DefaultModel+":generateContent" {
		t.Errorf("path = %q", got.path)
	}
	if got.apiKey != "secret" {
		t.Errorf("api key header = %q", got.apiKey)
	}
	if got.req.Contents[0].Role != "user" {
		t.Errorf("role = %q", got.req.Contents[0].Role)
	}
	parts := got.req.Contents[0].Parts
	if len(parts) != 2 || parts[0].Text != "transcribe please" || parts[1].InlineData == nil {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].InlineData.MimeType != "audio/mp4" {
		t.Errorf("mime = %q", parts[1].InlineData.MimeType)
	}
	if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte("RIFF")) {
		t.Errorf("data = %q", parts[1].InlineData.Data)
	}
}

func TestTranscribe_HTTPError(t *testing.T) {
	srv, _ := testServer(t, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	c := New(Config{APIKey: "bad", BaseURL: srv.URL})

	_, err := c.Transcribe(context.Background(), []byte("x"), "audio/mp4", "")
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("err = %v", err)
	}
}

func TestTranscribe_BlockedPrompt(t *testing.T) {
	srv, _ := testServer(t, http.StatusOK, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	c := New(Config{APIKey: "k", BaseURL: srv.URL})

	_, err := c.Transcribe(context.Background(), []byte("x"), "audio/mp4", "")
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("err = %v", err)
	}
}

func TestTranscribe_NotConfigured(t *testing.T) {
	c := New(Config{})
	if c.Configured() {
		t.Fatal("client without key should not be configured")
	}
	if _, err := c.Transcribe(context.Background(), nil, "audio/mp4", ""); err == nil {
		t.Error("expected error without api key")
	}
	if New(Config{APIKey: "  "}).Configured() {
		t.Error("blank key should not count as configured")
	}
}

func TestTranscribe_SingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Transcribe(context.Background(), []byte("x"), "audio/mp4", ""); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSummarizeTitle_UsesTitleModel(t *testing.T) {
	srv, got := testServer(t, http.StatusOK, textReply("## \"Quarterly planning call.\"\n"))
	c := New(Config{APIKey: "k", BaseURL: srv.URL + "/", TitleModel: "gemini-flash"})

	title, err := c.SummarizeTitle(context.Background(), "we planned the quarter")
	if err != nil {
		t.Fatalf("SummarizeTitle: %v", err)
	}
	if title != "Quarterly planning call" {
		t.Errorf("title = %q", title)
	}
	if got.path != "/v1beta/models/gemini-flash:generateContent" {
		t.Errorf("path = %q", got.path)
	}
	if !strings.HasSuffix(got.req.Contents[0].Parts[0].Text, "we planned the quarter") {
		t.Errorf("prompt = %q", got.req.Contents[0].Parts[0].Text)
	}
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"\n\n  \n":             "",
		"# Weekly sync":        "Weekly sync",
		"'Budget review'.":     "Budget review",
		"**Bold title**\nmore": "Bold title",
	}
	for in, want := range cases {
		if got := CleanTitle(in); got != want {
			t.Errorf("CleanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
