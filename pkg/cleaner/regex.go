package cleaner

import (
	"regexp"
)

// RegexCleaner replaces every match of a regular expression.
type RegexCleaner struct {
	name        string
	re          *regexp.Regexp
	replacement []byte
}

// NewRegex creates a cleaner replacing matches of re with replacement.
// Inside replacement, $1 or ${1} expand to submatches as in regexp.Expand.
func NewRegex(name string, re *regexp.Regexp, replacement string) *RegexCleaner {
	return &RegexCleaner{
		name:        name,
		re:          re,
		replacement: []byte(replacement),
	}
}

// NewErase creates a cleaner that deletes every match of re.
func NewErase(name string, re *regexp.Regexp) *RegexCleaner {
	return NewRegex(name, re, "")
}

// Clean replaces all matches.
func (c *RegexCleaner) Clean(content []byte) []byte {
	if len(c.replacement) == 0 {
		return c.re.ReplaceAllLiteral(content, nil)
	}
	return c.re.ReplaceAll(content, c.replacement)
}

// Name returns the cleaner name.
func (c *RegexCleaner) Name() string {
	return c.name
}

// Pattern returns the source text of the expression.
func (c *RegexCleaner) Pattern() string {
	return c.re.String()
}
