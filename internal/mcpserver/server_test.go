package mcpserver

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vaultscribe/internal/noteservice"
	"github.com/starford/vaultscribe/internal/notify"
	"github.com/starford/vaultscribe/internal/resolver"
	"github.com/starford/vaultscribe/internal/splicer"
	"github.com/starford/vaultscribe/internal/storage"
	"github.com/starford/vaultscribe/internal/testutil"
)

const m4a = "\x00\x00\x00\x18ftypM4A \x00\x00\x00\x00"

type stubTranscriber struct{ configured bool }

func (s stubTranscriber) Configured() bool { return s.configured }

func (s stubTranscriber) Transcribe(context.Context, []byte, string, string) (string, error) {
	return "Spoken words.", nil
}

func testServer(t *testing.T, files map[string]string, configured bool) (*Server, storage.Provider) {
	t.Helper()
	store := testutil.TestVault(t, files)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idx := resolver.NewStoreIndex(store)
	sp := splicer.New(store, idx, stubTranscriber{configured: configured},
		splicer.WithLogger(logger),
		splicer.WithNotifier(notify.NewLog(logger)))
	svc := noteservice.NewService(store, idx, splicer.NewRunner(sp))
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "transcribe_note":
		result, err = srv.transcribeNote(ctx, req)
	case "list_audio_links":
		result, err = srv.listAudioLinks(ctx, req)
	case "upload_audio":
		result, err = srv.uploadAudio(ctx, req)
	case "get_transcript_format":
		result, err = srv.getTranscriptFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolsRegistered(t *testing.T) {
	srv, _ := testServer(t, nil, true)
	tools := srv.MCPServer().ListTools()
	for _, name := range []string{"transcribe_note", "list_audio_links", "upload_audio", "get_transcript_format"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestTranscribeNote(t *testing.T) {
	srv, store := testServer(t, map[string]string{
		"n.md":      "![[a.m4a]] [[lost.m4a]]",
		"rec/a.m4a": m4a,
	}, true)

	r := callTool(t, srv, "transcribe_note", map[string]any{"path": "n.md"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	want := "n.md: transcribed 1 of 2 audio links\n" +
		"- a.m4a: transcribed from rec/a.m4a as \"Transcript for a.m4a\"\n" +
		"- lost.m4a: not found"
	if got := resultText(r); got != want {
		t.Errorf("result = %q, want %q", got, want)
	}

	data, _ := store.Read("n.md")
	if !strings.Contains(string(data), "# Transcript for a.m4a\n![[a.m4a]]\n\nSpoken words.\n") {
		t.Errorf("note = %q", data)
	}
}

func TestTranscribeNoteIgnoresCallCancellation(t *testing.T) {
	srv, store := testServer(t, map[string]string{"n.md": "[[a.m4a]]", "a.m4a": m4a}, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := mcp.CallToolRequest{}
	req.Params.Name = "transcribe_note"
	req.Params.Arguments = map[string]any{"path": "n.md"}
	r, err := srv.transcribeNote(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("result = %q", resultText(r))
	}
	want := "# Transcript for a.m4a\n![[a.m4a]]\n\nSpoken words.\n"
	if got := testutil.ReadFile(t, store, "n.md"); got != want {
		t.Errorf("note = %q, want %q", got, want)
	}
}

func TestTranscribeNoteErrors(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"n.md": "[[a.m4a]]"}, false)

	r := callTool(t, srv, "transcribe_note", map[string]any{"path": "n.md"})
	if !r.IsError || !strings.Contains(resultText(r), "API key is not set") {
		t.Errorf("missing credential result = %+v", r)
	}
	r = callTool(t, srv, "transcribe_note", map[string]any{})
	if !r.IsError {
		t.Error("expected error without path")
	}
}

func TestListAudioLinks(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"n.md":  "[[a.m4a]] and [[b.md]]",
		"a.m4a": m4a,
		"e.md":  "nothing",
	}, true)

	r := callTool(t, srv, "list_audio_links", map[string]any{"path": "n.md"})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, `"raw": "a.m4a"`) || !strings.Contains(text, `"method": "exact"`) {
		t.Errorf("result = %s", text)
	}

	r = callTool(t, srv, "list_audio_links", map[string]any{"path": "e.md"})
	if resultText(r) != "no audio links found" {
		t.Errorf("empty result = %q", resultText(r))
	}

	r = callTool(t, srv, "list_audio_links", map[string]any{"path": "ghost.md"})
	if !r.IsError || resultText(r) != "not found: ghost.md" {
		t.Errorf("missing note result = %q", resultText(r))
	}
}

func TestUploadAudioDataURI(t *testing.T) {
	srv, store := testServer(t, map[string]string{"inbox.md": "memo"}, true)
	uri := "data:audio/mp4;base64," + base64.StdEncoding.EncodeToString([]byte(m4a))

	r := callTool(t, srv, "upload_audio", map[string]any{"url": uri, "filename": "call.m4a", "note": "inbox.md"})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"embed":"![[attachments/call.m4a]]"`) {
		t.Errorf("result = %s", resultText(r))
	}
	if data, err := store.Read("attachments/call.m4a"); err != nil || string(data) != m4a {
		t.Errorf("stored = %q, %v", data, err)
	}
	if data, _ := store.Read("inbox.md"); string(data) != "memo\n\n![[attachments/call.m4a]]\n" {
		t.Errorf("note = %q", data)
	}
}

func TestUploadAudioRejects(t *testing.T) {
	srv, _ := testServer(t, nil, true)

	cases := []string{
		"data:image/png;base64,aGVsbG8=",
		"data:audio/mp4,plain",
		"ftp://example.com/a.m4a",
		"data:audio/mp4;base64," + base64.StdEncoding.EncodeToString([]byte("not audio")),
	}
	for _, u := range cases {
		if r := callTool(t, srv, "upload_audio", map[string]any{"url": u}); !r.IsError {
			t.Errorf("%s: expected error", u)
		}
	}
}

func TestUploadAudioBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(m4a))
	}))
	defer ts.Close()

	srv, _ := testServer(t, nil, true)
	r := callTool(t, srv, "upload_audio", map[string]any{"url": ts.URL + "/memo.m4a"})
	if !r.IsError || !strings.Contains(resultText(r), "blocked host") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestCheckBlockedHost(t *testing.T) {
	blocked := []string{
		"127.0.0.1", "::1", "0.0.0.0",
		"169.254.169.254", "metadata.google.internal",
		"10.0.0.8", "172.16.4.1", "192.168.1.20", "fd00::1",
	}
	for _, h := range blocked {
		if err := checkBlockedHost(h); err == nil {
			t.Errorf("%s: expected blocked", h)
		}
	}
	for _, h := range []string{"8.8.8.8", "2001:4860:4860::8888"} {
		if err := checkBlockedHost(h); err != nil {
			t.Errorf("%s: %v", h, err)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	if got := filenameFromURL("https://example.com/rec/call.m4a?x=1", ".mp3"); got != "call.m4a" {
		t.Errorf("got %q", got)
	}
	if got := filenameFromURL("https://example.com/download", ".mp3"); !strings.HasSuffix(got, ".mp3") {
		t.Errorf("got %q", got)
	}
	if got := filenameFromURL("data:audio/mp4;base64,AAAA", ""); !strings.HasSuffix(got, ".m4a") {
		t.Errorf("got %q", got)
	}
}

func TestTranscriptFormatTool(t *testing.T) {
	srv, _ := testServer(t, nil, true)
	r := callTool(t, srv, "get_transcript_format", nil)
	if !strings.Contains(resultText(r), "Transcript for <file name>") {
		t.Errorf("format text missing heading rule")
	}
}
