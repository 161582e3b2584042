package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/redact"
	"github.com/jmylchreest/pagewatch/pkg/watch"
	"github.com/jmylchreest/pagewatch/pkg/watchlist"
)

var runAt = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func sampleResult() *watch.Result {
	statusErr := fetcher.NewFetchError("https://b.example", fetcher.StatusError(503))
	ruleErr := &redact.RuleError{Name: "news", Line: 2, Pattern: "(", Err: errors.New("missing closing )")}

	return &watch.Result{
		RunAt: runAt,
		Changes: []watch.Change{
			{URL: "https://a.example", LastChanged: runAt, Title: "A", First: true},
			{URL: "https://d.example", LastChanged: runAt},
		},
		Failures: []watch.Failure{
			{URL: "https://b.example", Err: statusErr},
			{URL: "https://c.example", Err: ruleErr},
		},
		Outcomes: []watch.Outcome{
			{Target: watchlist.Target{URL: "https://a.example"}, Status: watch.StatusChanged},
			{Target: watchlist.Target{URL: "https://b.example"}, Status: watch.StatusFailed},
			{Target: watchlist.Target{URL: "https://c.example"}, Status: watch.StatusFailed},
			{Target: watchlist.Target{URL: "https://d.example"}, Status: watch.StatusChanged},
			{Target: watchlist.Target{URL: "https://e.example"}, Status: watch.StatusUnchanged},
		},
	}
}

// --- Format Tests ---

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" jsonl ", FormatJSONL, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- NewWriter Factory Tests ---

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "*output.TextWriter"},
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			w, err := NewWriter(&bytes.Buffer{}, tt.format)
			if err != nil {
				t.Fatalf("NewWriter() error = %v", err)
			}
			if got := fmt.Sprintf("%T", w); got != tt.want {
				t.Errorf("NewWriter(%s) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("unsupported"))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

// --- Report Tests ---

func TestNewReport(t *testing.T) {
	r := NewReport(sampleResult())

	want := Summary{Targets: 5, Changed: 2, Unchanged: 1, Failed: 2}
	if r.Summary != want {
		t.Errorf("Summary = %+v, want %+v", r.Summary, want)
	}
	if len(r.Changes) != 2 || r.Changes[0].URL != "https://a.example" || !r.Changes[0].First {
		t.Errorf("Changes = %+v", r.Changes)
	}
	if r.Failures[0].Error != "unexpected status: 503" {
		t.Errorf("fetch failure cause = %q", r.Failures[0].Error)
	}
	if !strings.Contains(r.Failures[1].Error, "news") {
		t.Errorf("rule failure cause = %q", r.Failures[1].Error)
	}
}

func TestCause(t *testing.T) {
	if Cause(nil) != "" {
		t.Error("Cause(nil) should be empty")
	}
	if got := Cause(errors.New("plain")); got != "plain" {
		t.Errorf("Cause() = %q", got)
	}
}

// --- TextWriter Tests ---

func TestTextWriter_Changes(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewTextWriter(buf).WriteReport(NewReport(sampleResult())); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	want := strings.Join([]string{
		"Error fetching https://b.example: unexpected status: 503",
		"Error fetching https://c.example: " + Cause(sampleResult().Failures[1].Err),
		"Changed URLs since last snapshot:",
		"https://a.example (changed at 2026-05-01T08:00:00Z)",
		"https://d.example (changed at 2026-05-01T08:00:00Z)",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestTextWriter_NoChanges(t *testing.T) {
	buf := &bytes.Buffer{}
	r := &Report{RunAt: runAt}
	if err := NewTextWriter(buf).WriteReport(r); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No changes detected.\n" {
		t.Errorf("output = %q", buf.String())
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONWriter(buf, true, "  ").WriteReport(NewReport(sampleResult())); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  \"summary\"") {
		t.Errorf("expected indented output, got %s", buf.String())
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Summary.Failed != 2 || !decoded.RunAt.Equal(runAt) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestJSONWriter_Compact(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatJSON, WithPretty(false))
	if err := w.WriteReport(NewReport(sampleResult())); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact output should be a single line, got %q", buf.String())
	}
}

func TestJSONWriter_OmitsZeroTimestampOnFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONWriter(buf, false, "").WriteReport(NewReport(sampleResult())); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "0001-01-01") {
		t.Errorf("zero timestamps should be omitted: %s", buf.String())
	}
}

func TestJSONWriter_EmptyListsAreArrays(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONWriter(buf, false, "").WriteReport(NewReport(&watch.Result{RunAt: runAt})); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"changes":[]`) || !strings.Contains(buf.String(), `"failures":[]`) {
		t.Errorf("empty lists should encode as [], got %s", buf.String())
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONLWriter(buf).WriteReport(NewReport(sampleResult())); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}

	wantURLs := []string{"https://a.example", "https://d.example", "https://b.example", "https://c.example"}
	wantStatus := []string{StatusChanged, StatusChanged, StatusFailed, StatusFailed}
	for i, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if rec.URL != wantURLs[i] || rec.Status != wantStatus[i] {
			t.Errorf("line %d = %+v", i, rec)
		}
	}
}

func TestJSONLWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONLWriter(buf).WriteReport(&Report{}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewYAMLWriter(buf).WriteReport(NewReport(sampleResult())); err != nil {
		t.Fatal(err)
	}

	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(decoded.Changes) != 2 || decoded.Changes[0].Title != "A" {
		t.Errorf("decoded changes = %+v", decoded.Changes)
	}
	if decoded.Failures[0].Error != "unexpected status: 503" {
		t.Errorf("decoded failures = %+v", decoded.Failures)
	}
	if strings.Contains(buf.String(), "last_changed: 0001") {
		t.Errorf("zero timestamps should be omitted:\n%s", buf.String())
	}
}
