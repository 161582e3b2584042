package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes the report as a single JSON document.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// WriteReport encodes r followed by a newline.
func (w *JSONWriter) WriteReport(r *Report) error {
	enc := json.NewEncoder(w.w)
	if w.pretty {
		enc.SetIndent("", w.indent)
	}
	if err := enc.Encode(r); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter writes one JSON object per changed or failed target, changes
// first, for line-oriented consumers.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteReport writes each record on its own line.
func (w *JSONLWriter) WriteReport(r *Report) error {
	enc := json.NewEncoder(w.w)
	for _, group := range [][]Record{r.Changes, r.Failures} {
		for _, rec := range group {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}
	return w.w.Flush()
}
