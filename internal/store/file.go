package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

const idsFile = "ids.json"

// FileStore keeps command ids in a JSON file under <state-dir>/commands.
// All methods are concurrency-safe (internal mutex).
type FileStore struct {
	mu    sync.Mutex
	dir   string
	state map[string]map[string]string
}

// NewFileStore loads existing ids from disk or starts empty.
func NewFileStore(stateDir string) (*FileStore, error) {
	dir := filepath.Join(stateDir, "commands")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create commands dir: %w", err)
	}

	s := &FileStore{dir: dir, state: make(map[string]map[string]string)}
	if err := s.loadJSON(idsFile, &s.state); err != nil {
		return nil, err
	}
	if s.state == nil {
		s.state = make(map[string]map[string]string)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, idsFile)
}

func (s *FileStore) Save(_ context.Context, scope string, ids map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.state[scope]
	s.state[scope] = maps.Clone(ids)
	if err := s.saveJSON(idsFile, s.state); err != nil {
		if had {
			s.state[scope] = prev
		} else {
			delete(s.state, scope)
		}
		return err
	}
	return nil
}

func (s *FileStore) Lookup(_ context.Context, scope, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.state[scope][name]
	return id, ok, nil
}

func (s *FileStore) List(_ context.Context, scope string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := maps.Clone(s.state[scope])
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

// saveJSON writes data as JSON using an atomic rename.
func (s *FileStore) saveJSON(filename string, data any) error {
	target := filepath.Join(s.dir, filename)
	tmp := target + ".tmp"

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}

// loadJSON reads filename into target. A missing file is fresh state.
func (s *FileStore) loadJSON(filename string, target any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filename, err)
	}
	return nil
}
