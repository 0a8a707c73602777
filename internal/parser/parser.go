// Package parser extracts audio wikilinks from Markdown content.
package parser

import "strings"

// DefaultExtensions is the audio allow-list used when none is configured.
var DefaultExtensions = []string{"m4a"}

// Reference is a wikilink token pointing at an audio attachment.
type Reference struct {
	// Raw is the exact text between the brackets. It may contain a path.
	Raw string `json:"raw"`
	// Embed reports whether the token was written as ![[...]].
	Embed bool `json:"embed"`
	// Offset is the byte offset of the token (including any "!") in the scanned text.
	Offset int `json:"offset"`
}

// Basename returns the last path segment of the reference.
func (r Reference) Basename() string {
	if i := strings.LastIndex(r.Raw, "/"); i >= 0 {
		return r.Raw[i+1:]
	}
	return r.Raw
}

// Ext returns the lower-cased text after the final ".", or "".
func (r Reference) Ext() string {
	base := r.Basename()
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// Token returns the wikilink text the reference was parsed from.
func (r Reference) Token() string {
	if r.Embed {
		return EmbedToken(r.Raw)
	}
	return LinkToken(r.Raw)
}

// LinkToken formats name as a plain wikilink.
func LinkToken(name string) string {
	return "[[" + name + "]]"
}

// EmbedToken formats name as an embed wikilink.
func EmbedToken(name string) string {
	return "![[" + name + "]]"
}

// NormalizeExtensions lower-cases the allow-list, strips leading dots and
// drops blank and duplicate entries. A nil or empty result means nothing matches.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]struct{}, len(exts))
	var out []string
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		e = strings.TrimLeft(e, ".")
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// ExtractAudioLinks scans doc left to right and returns every [[name]] or
// ![[name]] token whose name ends with an allow-listed extension. Tokens are
// returned in document order and duplicates are kept.
func ExtractAudioLinks(doc string, exts []string) []Reference {
	allowed := NormalizeExtensions(exts)
	if len(allowed) == 0 {
		return nil
	}

	var out []Reference
	for _, tok := range scanWikilinks(doc) {
		if hasAllowedExt(tok.Raw, allowed) {
			out = append(out, tok)
		}
	}
	return out
}

// scanWikilinks is a single-pass scanner for [[name]] tokens. A name is one or
// more bytes containing neither "]" nor a line break, and the first "]" after
// the opening brackets must start the closing "]]". When no token can start at
// a position the scan resumes at the next byte.
func scanWikilinks(s string) []Reference {
	var out []Reference
	i := 0
	for i+1 < len(s) {
		if s[i] != '[' || s[i+1] != '[' {
			i++
			continue
		}
		start := i + 2
		j := start
		for j < len(s) && s[j] != ']' && s[j] != '\n' && s[j] != '\r' {
			j++
		}
		if j == start || j+1 >= len(s) || s[j] != ']' || s[j+1] != ']' {
			i++
			continue
		}
		ref := Reference{Raw: s[start:j], Offset: i}
		if i > 0 && s[i-1] == '!' {
			ref.Embed = true
			ref.Offset = i - 1
		}
		out = append(out, ref)
		i = j + 2
	}
	return out
}

func hasAllowedExt(name string, allowed []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}
