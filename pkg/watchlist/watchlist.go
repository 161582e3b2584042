// Package watchlist loads the ordered list of pages a run checks.
//
// The format is line oriented:
//
//	# comment
//	https://example.com/news
//	https://example.com/events ; events
//
// A line is a URL, optionally followed by Delimiter and the name of a
// redaction rule set. Blank lines and lines starting with CommentPrefix are
// skipped. URLs are not validated here; a malformed URL surfaces later as a
// fetch failure for that target.
package watchlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/pkg/errdefs"
)

const (
	// CommentPrefix marks a line that is ignored.
	CommentPrefix = "#"
	// Delimiter separates the URL from the rule set reference.
	Delimiter = ";"
)

// Target is one watch-list entry.
type Target struct {
	URL     string // Page to fetch, as written in the watch-list
	RuleSet string // Redaction rule set reference, empty when none
}

// HasRuleSet reports whether the target references a redaction rule set.
func (t Target) HasRuleSet() bool {
	return t.RuleSet != ""
}

func (t Target) String() string {
	if t.RuleSet == "" {
		return t.URL
	}
	return t.URL + Delimiter + t.RuleSet
}

// ParseLine parses a single watch-list line.
// ok is false for blank and comment lines.
func ParseLine(line string) (t Target, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, CommentPrefix) {
		return Target{}, false
	}

	url, ref, found := strings.Cut(line, Delimiter)
	if !found {
		return Target{URL: line}, true
	}
	return Target{
		URL:     strings.TrimSpace(url),
		RuleSet: strings.TrimSpace(ref),
	}, true
}

// Parse reads targets from r in order.
func Parse(r io.Reader) ([]Target, error) {
	var targets []Target

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if t, ok := ParseLine(scanner.Text()); ok {
			targets = append(targets, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read watch-list: %w", err)
	}

	return targets, nil
}

// Load reads the watch-list file at path.
// Any failure to open or read the file is returned as a *errdefs.ConfigError.
func Load(path string) ([]Target, error) {
	f, err := os.Open(path) //#nosec G304 -- watch-list path is operator supplied
	if err != nil {
		return nil, errdefs.NewConfigError("watch-list", path, err)
	}
	defer func() { _ = f.Close() }()

	targets, err := Parse(f)
	if err != nil {
		return nil, errdefs.NewConfigError("watch-list", path, err)
	}

	logger.Debug("watch-list loaded", "path", path, "targets", len(targets))
	return targets, nil
}
