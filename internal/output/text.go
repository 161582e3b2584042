package output

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// Text report lines.
const (
	textChangedHeader = "Changed URLs since last snapshot:"
	textNoChanges     = "No changes detected."
)

// TextWriter prints the human-readable report: one line per failure, then
// either the changed URLs or a "no changes" line.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// WriteReport writes r and flushes.
func (w *TextWriter) WriteReport(r *Report) error {
	for _, f := range r.Failures {
		fmt.Fprintf(w.w, "Error fetching %s: %s\n", f.URL, f.Error)
	}

	if len(r.Changes) == 0 {
		fmt.Fprintln(w.w, textNoChanges)
		return w.w.Flush()
	}

	fmt.Fprintln(w.w, textChangedHeader)
	for _, c := range r.Changes {
		fmt.Fprintf(w.w, "%s (changed at %s)\n", c.URL, c.LastChanged.Format(time.RFC3339))
	}
	return w.w.Flush()
}
