// Package registry persists the tracked-thread registry as a single JSON
// document.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/leonletto/threadtrack/internal/logx"
	"github.com/leonletto/threadtrack/internal/types"
)

// Store reads and writes the registry document at a fixed path.
//
// Writes go to a temp file in the same directory which is then renamed over
// the document, so readers see either the old or the new version. Within a
// process all read-modify-write cycles are serialized by Update; across
// processes the last writer wins.
type Store struct {
	path string
	log  logx.Logger

	mu sync.Mutex
}

// NewStore creates a store for the document at path.
func NewStore(path string, log logx.Logger) *Store {
	return &Store{path: path, log: log.With(logx.String("registry", path))}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the last saved registry. A missing, unreadable or malformed
// document yields an empty registry. Unreadable and malformed documents are
// logged, never returned as errors.
func (s *Store) Load() types.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() types.Registry {
	data, err := os.ReadFile(s.path) //nolint:gosec // G304 - path from internal data directory
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("registry unreadable, starting empty", logx.Err(err))
		}
		return types.NewRegistry()
	}

	var reg types.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		s.log.Warn("registry malformed, starting empty", logx.Err(err))
		return types.NewRegistry()
	}
	return reg
}

// Save replaces the document with reg.
func (s *Store) Save(reg types.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(reg)
}

func (s *Store) save(reg types.Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	// Rename is atomic on POSIX filesystems.
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("finalize registry: %w", err)
	}
	committed = true
	return nil
}

// Update loads the registry, applies fn and saves the result if fn reports
// a change. fn receives a private copy; on error nothing is saved.
func (s *Store) Update(fn func(reg *types.Registry) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := s.load()
	changed, err := fn(&reg)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(reg)
}
