// Package snapshot holds the per-URL fingerprints carried between runs.
//
// A Snapshot is an in-memory, insertion-ordered map from URL to Entry. A
// Store loads the snapshot written by the previous run and saves the one
// produced by the current run. Stores never merge: Save replaces the whole
// persisted snapshot, so URLs absent from the new snapshot are forgotten.
package snapshot

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Entry is the persisted state of one URL.
type Entry struct {
	URL         string    `json:"url" yaml:"url"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	LastChanged time.Time `json:"last_changed" yaml:"last_changed"`
}

// Snapshot maps URLs to entries, remembering first insertion order.
// It is not safe for concurrent mutation.
type Snapshot struct {
	entries map[string]Entry
	order   []string
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{entries: make(map[string]Entry)}
}

// FromEntries builds a snapshot; later entries for the same URL win.
func FromEntries(entries ...Entry) *Snapshot {
	s := New()
	for _, e := range entries {
		s.Put(e)
	}
	return s
}

// Get returns the entry for url.
func (s *Snapshot) Get(url string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[url]
	return e, ok
}

// Put inserts or replaces the entry for e.URL. A replaced entry keeps its
// original position.
func (s *Snapshot) Put(e Entry) {
	if _, ok := s.entries[e.URL]; !ok {
		s.order = append(s.order, e.URL)
	}
	s.entries[e.URL] = e
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Entries returns all entries in insertion order.
func (s *Snapshot) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.order))
	for _, url := range s.order {
		out = append(out, s.entries[url])
	}
	return out
}

// Store persists snapshots between runs.
type Store interface {
	// Load returns the stored snapshot. A store that has never been written
	// yields an empty snapshot. Unreadable or malformed data is a
	// *errdefs.ConfigError.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot with s.
	Save(ctx context.Context, s *Snapshot) error

	// Location describes where the snapshot lives, for logs.
	Location() string
}

// Open returns the Store for path, chosen by file extension:
// .db, .sqlite and .sqlite3 use SQLite, anything else is CSV.
func Open(path string) Store {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return NewCSVStore(path)
	}
}

// timeLayout is the layout timestamps are written with.
const timeLayout = time.RFC3339Nano

// legacyTimeLayout matches naive ISO 8601 timestamps with optional fractional
// seconds, as written by earlier versions of the checksum file.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

// formatTime renders t for storage.
func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// parseTime accepts RFC 3339 and naive ISO 8601 (interpreted as local time).
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, s, time.Local)
}
