package redact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/pagewatch/internal/logger"
)

// Loader resolves a rule set reference to a RuleSet.
// A reference with no backing resource yields an empty rule set, not an error.
type Loader interface {
	Load(name string) (*RuleSet, error)
}

// NoRules is a Loader that always returns an empty rule set.
type NoRules struct{}

// Load returns an empty rule set.
func (NoRules) Load(name string) (*RuleSet, error) {
	return Empty(name), nil
}

// DirLoader reads rule sets from files named after the reference inside a
// directory. Results, including failures, are cached for the loader's
// lifetime, so each file is read at most once per run.
type DirLoader struct {
	dir string

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	rs  *RuleSet
	err error
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{
		dir:   dir,
		cache: make(map[string]cached),
	}
}

// Dir returns the directory rule sets are read from.
func (l *DirLoader) Dir() string {
	return l.dir
}

// Load returns the rule set for name. An empty name or a missing file gives
// an empty rule set. A name that escapes the directory, an unreadable file,
// or an invalid pattern is a *RuleError.
func (l *DirLoader) Load(name string) (*RuleSet, error) {
	if name == "" {
		return Empty(name), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.cache[name]; ok {
		return c.rs, c.err
	}

	rs, err := l.read(name)
	l.cache[name] = cached{rs: rs, err: err}
	return rs, err
}

func (l *DirLoader) read(name string) (*RuleSet, error) {
	if !filepath.IsLocal(name) {
		return nil, &RuleError{Name: name, Err: fmt.Errorf("reference escapes rule directory %s", l.dir)}
	}

	path := filepath.Join(l.dir, name)
	f, err := os.Open(path) //#nosec G304 -- confined to the rule directory above
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("rule set not found, using no extra redactions", "name", name, "path", path)
		return Empty(name), nil
	}
	if err != nil {
		return nil, &RuleError{Name: name, Err: err}
	}
	defer func() { _ = f.Close() }()

	rs, err := Parse(name, f)
	if err != nil {
		return nil, err
	}

	logger.Debug("rule set loaded", "name", name, "path", path, "patterns", rs.Len())
	return rs, nil
}
