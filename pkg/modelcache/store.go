// Package modelcache persists fitted text-similarity indexes between runs,
// keyed by a content fingerprint of the reference corpus. The cache is
// advisory: any read failure is treated as a miss so the caller refits.
package modelcache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/blocking"
)

// entry is the on-disk cache record: the corpus fingerprint the index was
// fitted against plus the serialized index itself.
type entry struct {
	Fingerprint string
	Index       *blocking.TextIndex
}

// Store is a single-slot-per-role key-value store for fitted indexes.
// Only one corpus per role (account, contact) is active per run, so a new
// fingerprint simply replaces the slot. Reads are safe across concurrent
// runs; writes are atomic (temp file + rename), so a write race costs at
// worst a redundant refit, never a corrupt entry.
type Store struct {
	dir string
	log ectologger.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, log ectologger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Get returns the cached index for role if its fingerprint matches.
// Corrupt or unreadable entries are logged and reported as a miss.
func (s *Store) Get(role, fingerprint string) (*blocking.TextIndex, bool) {
	path := s.path(role)

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).WithField("role", role).Warn("Failed to open cache entry; refitting")
		}
		return nil, false
	}
	defer f.Close()

	var e entry
	if err := gob.NewDecoder(f).Decode(&e); err != nil {
		s.log.WithError(err).WithField("role", role).Warn("Corrupt cache entry; refitting")
		return nil, false
	}

	if e.Fingerprint != fingerprint || e.Index == nil {
		return nil, false
	}
	return e.Index, true
}

// Put stores the index for role, replacing any prior entry. The write goes
// to a temp file first and is committed with an atomic rename.
func (s *Store) Put(role, fingerprint string, index *blocking.TextIndex) error {
	tmp, err := os.CreateTemp(s.dir, role+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(entry{Fingerprint: fingerprint, Index: index}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush cache entry: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(role)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for role, if any.
func (s *Store) Invalidate(role string) error {
	err := os.Remove(s.path(role))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to invalidate cache entry for %s: %w", role, err)
	}
	return nil
}

func (s *Store) path(role string) string {
	return filepath.Join(s.dir, role+".idx")
}
