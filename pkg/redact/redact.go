// Package redact loads per-target redaction rule sets.
//
// A rule set is a plain text file with one regular expression per line,
// using Go RE2 syntax. Blank lines and lines starting with "#" are ignored.
// Every match of every pattern is erased, in file order, after the built-in
// cleaning pipeline has run.
package redact

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jmylchreest/pagewatch/pkg/cleaner"
)

// RuleError reports a rule set that exists but cannot be used.
type RuleError struct {
	Name    string // Rule set reference
	Line    int    // 1-based line of the bad pattern, 0 when not pattern specific
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("rule set %q line %d: invalid pattern %q: %v", e.Name, e.Line, e.Pattern, e.Err)
	}
	return fmt.Sprintf("rule set %q: %v", e.Name, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// RuleSet is an ordered list of compiled erase patterns.
// The zero value and nil are both valid empty rule sets.
type RuleSet struct {
	Name     string
	patterns []*regexp.Regexp
}

// Empty returns a rule set with no patterns.
func Empty(name string) *RuleSet {
	return &RuleSet{Name: name}
}

// Compile builds a rule set from pattern strings, in order.
func Compile(name string, patterns []string) (*RuleSet, error) {
	rs := &RuleSet{Name: name}
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &RuleError{Name: name, Line: i + 1, Pattern: p, Err: err}
		}
		rs.patterns = append(rs.patterns, re)
	}
	return rs, nil
}

// Parse reads a rule set file. Errors name the offending file line.
func Parse(name string, r io.Reader) (*RuleSet, error) {
	rs := &RuleSet{Name: name}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		p := strings.TrimSpace(scanner.Text())
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &RuleError{Name: name, Line: line, Pattern: p, Err: err}
		}
		rs.patterns = append(rs.patterns, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, &RuleError{Name: name, Err: err}
	}

	return rs, nil
}

// Len returns the number of patterns.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.patterns)
}

// Patterns returns the pattern sources in application order.
func (rs *RuleSet) Patterns() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, len(rs.patterns))
	for i, re := range rs.patterns {
		out[i] = re.String()
	}
	return out
}

// Cleaners returns one erase step per pattern, for use after the built-in
// pipeline (see cleaner.Canonical).
func (rs *RuleSet) Cleaners() []cleaner.Cleaner {
	if rs == nil {
		return nil
	}
	out := make([]cleaner.Cleaner, len(rs.patterns))
	for i, re := range rs.patterns {
		out[i] = cleaner.NewErase(fmt.Sprintf("redact:%s#%d", rs.Name, i+1), re)
	}
	return out
}
