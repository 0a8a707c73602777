// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vaultscribe tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultscribe/internal/apperr"
	"github.com/starford/vaultscribe/internal/noteservice"
)

const formatURI = "vaultscribe://transcript-format"

// Server wraps the MCP server with vaultscribe tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all vaultscribe tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"vaultscribe",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("transcribe_note",
		mcp.WithDescription("Transcribe every audio link ([[x.m4a]] or ![[x.m4a]]) in a note. "+
			"Each link is replaced by a transcript section appended to the note. "+
			"Returns one line per link with its outcome."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. daily/2024-05-01.md)")),
	), s.transcribeNote)

	s.mcp.AddTool(mcp.NewTool("list_audio_links",
		mcp.WithDescription("List the audio links in a note and the vault file each one resolves to, without transcribing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.listAudioLinks)

	s.mcp.AddTool(mcp.NewTool("upload_audio",
		mcp.WithDescription("Store an audio file in the vault from an http(s) URL or a base64 data URI. "+
			"Optionally embed it in a note so transcribe_note picks it up."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:audio/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("File name to store under (derived from the URL when empty)")),
		mcp.WithString("note", mcp.Description("Note to append an embed of the file to")),
	), s.uploadAudio)

	s.mcp.AddTool(mcp.NewTool("get_transcript_format",
		mcp.WithDescription("Describes which links are transcribed and the section format written into notes."),
	), s.getTranscriptFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Transcript Format",
			mcp.WithResourceDescription("Audio link syntax and the transcript section format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or
// the input closes. Transport errors go to logger.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) transcribeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Batches run to completion even if the client cancels the call.
	report, err := s.svc.Transcribe(context.WithoutCancel(ctx), path)
	if err != nil {
		return mcp.NewToolResultError(describe(err, path)), nil
	}
	return mcp.NewToolResultText(report.Summary()), nil
}

func (s *Server) listAudioLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.Links(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(describe(err, path)), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no audio links found"), nil
	}
	out, _ := json.MarshalIndent(links, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTranscriptFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TranscriptFormat), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     TranscriptFormat,
		},
	}, nil
}

func describe(err error, path string) string {
	switch {
	case errors.Is(err, apperr.ErrNoActiveNote):
		return "a note path is required"
	case errors.Is(err, apperr.ErrMissingCredential):
		return "transcription API key is not set; configure gemini.api_key"
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("not found: %s", path)
	default:
		return err.Error()
	}
}
