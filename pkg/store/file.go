package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/carebridge/audittrail/pkg/audit"
)

// FileStore persists signed entries as append-only JSON lines. The format is
// deliberately dumb: one self-contained JSON object per line, so a trail can
// be shipped to an auditor and verified offline with no schema migration.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore opens (creating if needed) a JSONL trail at path.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("store: open trail %s: %w", path, err)
	}
	_ = f.Close()
	return &FileStore{path: path}, nil
}

// Append writes one entry as a JSON line.
func (s *FileStore) Append(_ context.Context, e audit.SignedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: marshal entry %s: %w", e.ID, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("store: open trail for append: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("store: append entry %s: %w", e.ID, err)
	}
	return nil
}

// List reads back every entry in the trail. Malformed lines are returned as
// an error rather than skipped: a line that no longer parses is itself
// evidence of tampering and must not be silently dropped from an audit.
func (s *FileStore) List(_ context.Context) ([]audit.SignedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []audit.SignedEntry{}, nil
		}
		return nil, fmt.Errorf("store: open trail %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	var entries []audit.SignedEntry
	decoder := json.NewDecoder(f)
	line := 0
	for decoder.More() {
		line++
		var e audit.SignedEntry
		if err := decoder.Decode(&e); err != nil {
			return nil, fmt.Errorf("store: trail %s entry %d: %w", s.path, line, err)
		}
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []audit.SignedEntry{}
	}
	return entries, nil
}

// Path returns the trail file location.
func (s *FileStore) Path() string {
	return s.path
}
