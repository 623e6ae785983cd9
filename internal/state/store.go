package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/fieldwx/stationd/internal/log"
)

// Store reads and writes the retained state file. Writes go through a
// temporary file and a rename so that a power cut mid-write leaves the
// previous state intact rather than a torn one.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the retained state. A missing file is a cold boot and returns
// defaults; an unreadable or undecodable file is treated the same way,
// since the design must tolerate state loss as a reset to defaults.
func (s *Store) Load() (*State, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Infof("no retained state at %s, cold boot", s.path)
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading retained state: %w", err)
	}

	st := &State{}
	if err := msgpack.Unmarshal(raw, st); err != nil {
		log.Warnf("retained state at %s is unreadable, resetting to defaults: %v", s.path, err)
		return New(), nil
	}
	return st, nil
}

// Save atomically replaces the retained state file.
func (s *Store) Save(st *State) error {
	raw, err := msgpack.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding retained state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing retained state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing retained state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing retained state: %w", err)
	}
	return nil
}
