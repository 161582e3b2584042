package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/pkg/errdefs"
	"github.com/jmylchreest/pagewatch/pkg/fingerprint"
)

// CSVStore persists the snapshot as headerless CSV rows of
// url,fingerprint,last_changed.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store for the CSV file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Location returns the file path.
func (s *CSVStore) Location() string {
	return s.path
}

// Load reads the snapshot file. A missing file is an empty snapshot.
func (s *CSVStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path) //#nosec G304 -- snapshot path is operator supplied
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("snapshot not found, starting empty", "path", s.path)
		return New(), nil
	}
	if err != nil {
		return nil, errdefs.NewConfigError("snapshot", s.path, err)
	}

	snap, err := decodeCSV(bytes.NewReader(data))
	if err != nil {
		return nil, errdefs.NewConfigError("snapshot", s.path, err)
	}

	logger.Debug("snapshot loaded", "path", s.path, "entries", snap.Len())
	return snap, nil
}

// Save writes the snapshot to a temporary file and renames it into place.
func (s *CSVStore) Save(_ context.Context, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := encodeCSV(&buf, snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil { //#nosec G306 -- snapshot holds no secrets
		return fmt.Errorf("snapshot: write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("snapshot: rename: %w", err)
	}

	logger.Debug("snapshot saved", "path", s.path, "entries", snap.Len())
	return nil
}

func decodeCSV(r io.Reader) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	snap := New()
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("row %d: expected 3 fields, got %d", row, len(rec))
		}

		changed, err := parseTime(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp %q: %w", row, rec[2], err)
		}
		if !fingerprint.Valid(rec[1]) {
			logger.Warn("snapshot row has an unexpected fingerprint; it will be reported as changed",
				"row", row, "url", rec[0])
		}

		snap.Put(Entry{URL: rec[0], Fingerprint: rec[1], LastChanged: changed})
	}
	return snap, nil
}

func encodeCSV(w io.Writer, snap *Snapshot) error {
	cw := csv.NewWriter(w)
	for _, e := range snap.Entries() {
		if err := cw.Write([]string{e.URL, e.Fingerprint, formatTime(e.LastChanged)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
