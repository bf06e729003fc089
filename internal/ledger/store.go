package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marketmate/marketmate/internal/position"
)

// Store persists the position ledger as a whole. The manager is the single
// writer; implementations only need read-then-write-whole-file semantics.
type Store interface {
	Load() (map[string]*position.Position, error)
	Save(positions map[string]*position.Position) error
}

// FileStore keeps the ledger in one JSON file, written atomically.
type FileStore struct {
	path string
}

// NewFileStore creates a ledger store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (map[string]*position.Position, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]*position.Position), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	positions := make(map[string]*position.Position)
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	return positions, nil
}

func (s *FileStore) Save(positions map[string]*position.Position) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// MemoryStore is an in-process Store for tests and backtests.
type MemoryStore struct {
	positions map[string]*position.Position
}

// NewMemoryStore returns an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]*position.Position)}
}

func (s *MemoryStore) Load() (map[string]*position.Position, error) {
	out := make(map[string]*position.Position, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(positions map[string]*position.Position) error {
	s.positions = make(map[string]*position.Position, len(positions))
	for k, v := range positions {
		s.positions[k] = v
	}
	return nil
}
