package paramstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/backtest"
)

// FileName is the conventional cache file inside a results directory.
const FileName = "optimized_params.json"

// FileStore keeps parameters in memory and rewrites a JSON file on every
// Set. Writes go to a temp file that is renamed over the target.
type FileStore struct {
	MemoryStore
	path string
}

// NewFile creates a FileStore for path and loads it if it exists.
func NewFile(path string) (*FileStore, error) {
	s := &FileStore{MemoryStore: MemoryStore{params: make(Snapshot)}, path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // start empty
	}
	if err != nil {
		return fmt.Errorf("paramstore: read %s: %w", s.path, err)
	}

	var loaded Snapshot
	if len(data) > 0 {
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("paramstore: decode %s: %w", s.path, err)
		}
	}
	if loaded == nil {
		loaded = make(Snapshot)
	}

	s.mu.Lock()
	s.params = loaded
	s.mu.Unlock()

	log.Debug().Str("path", s.path).Int("strategies", len(loaded)).Msg("loaded optimized params")
	return nil
}

func (s *FileStore) Set(strategy, asset string, ps backtest.ParamSet) error {
	if err := checkKey(strategy, asset); err != nil {
		return err
	}
	return s.update(func(next Snapshot) { next.set(strategy, asset, ps) })
}

func (s *FileStore) Delete(strategy, asset string) error {
	return s.update(func(next Snapshot) { next.delete(strategy, asset) })
}

func (s *FileStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(s.params)
}

// update applies fn to a copy of the state and keeps the copy only once it
// is on disk.
func (s *FileStore) update(fn func(Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.params.clone()
	fn(next)
	if err := s.flush(next); err != nil {
		return err
	}
	s.params = next
	return nil
}

// flush writes snap to disk. Must be called with mu held.
func (s *FileStore) flush(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("paramstore: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("paramstore: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".params-*.json")
	if err != nil {
		return fmt.Errorf("paramstore: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("paramstore: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("paramstore: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("paramstore: rename: %w", err)
	}
	return nil
}
