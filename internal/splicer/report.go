package splicer

import (
	"fmt"
	"strings"
)

// Summary renders the report as a headline plus one line per reference.
func (r *Report) Summary() string {
	if len(r.Outcomes) == 0 {
		return fmt.Sprintf("%s: no audio links found", r.Note)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: transcribed %d of %d audio links\n",
		r.Note, r.Count(StatusTranscribed), len(r.Outcomes))
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusTranscribed:
			fmt.Fprintf(&b, "- %s: transcribed from %s as %q\n", o.Reference.Raw, o.Path, o.Heading)
		case StatusNotFound:
			fmt.Fprintf(&b, "- %s: not found\n", o.Reference.Raw)
		default:
			fmt.Fprintf(&b, "- %s: failed: %s\n", o.Reference.Raw, o.Error)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
