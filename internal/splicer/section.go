package splicer

import (
	"strings"

	"github.com/starford/vaultscribe/internal/parser"
)

// MimeType maps an audio extension to the MIME hint sent with the audio.
func MimeType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "m4a" {
		return "audio/mp4"
	}
	return "audio/" + ext
}

// DefaultHeading is the section heading used when no title is available.
func DefaultHeading(basename string) string {
	return "Transcript for " + basename
}

// BuildSection renders the Markdown appended for one transcribed reference:
//
//	# <heading>
//	![[<basename>]]
//
//	<transcript>
func BuildSection(heading, basename, transcript string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(parser.EmbedToken(basename))
	b.WriteString("\n")
	if body := strings.TrimSpace(transcript); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

// RemoveFirstToken deletes the first ![[raw]] in doc, or failing that the
// first [[raw]]. It reports whether anything was removed.
func RemoveFirstToken(doc, raw string) (string, bool) {
	for _, tok := range []string{parser.EmbedToken(raw), parser.LinkToken(raw)} {
		if i := strings.Index(doc, tok); i >= 0 {
			return doc[:i] + doc[i+len(tok):], true
		}
	}
	return doc, false
}

// AppendSection adds section at the end of doc, separated from existing
// content by one blank line. Existing content is never trimmed; only the
// missing newlines are added.
func AppendSection(doc, section string) string {
	switch {
	case doc == "":
		return section
	case strings.HasSuffix(doc, "\n\n"):
		return doc + section
	case strings.HasSuffix(doc, "\n"):
		return doc + "\n" + section
	default:
		return doc + "\n\n" + section
	}
}

// Splice applies one reference's edit to doc: the original token is removed
// from the first len(doc)-protected bytes only, and section is appended.
// protected is the length of a trailing region (text appended earlier in the
// same batch) that must not be searched. It returns the new document, the new
// protected length and whether a token was removed.
func Splice(doc string, protected int, raw, section string) (string, int, bool) {
	if protected < 0 || protected > len(doc) {
		protected = 0
	}
	head, tail := doc[:len(doc)-protected], doc[len(doc)-protected:]
	head, removed := RemoveFirstToken(head, raw)
	updated := AppendSection(head+tail, section)
	return updated, len(updated) - len(head), removed
}
