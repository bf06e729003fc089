// Package file provides JSON-file implementations of the persistence
// contracts. Writes go through a temp-file-plus-rename so a crashed process
// never leaves a half-written store behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/marketmate/marketmate/internal/persistence"
)

// writeJSONAtomic marshals v and renames a temp file into place.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// ScoreHistory is a file-backed ScoreHistoryRepo keyed by date. It assumes a
// single writer process; the mutex only guards in-process callers.
type ScoreHistory struct {
	mu   sync.Mutex
	path string
	days map[string]persistence.DayScores
}

// OpenScoreHistory loads (or initializes) a score history file.
func OpenScoreHistory(path string) (*ScoreHistory, error) {
	s := &ScoreHistory{path: path, days: make(map[string]persistence.DayScores)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read score history: %w", err)
	}
	if err := json.Unmarshal(data, &s.days); err != nil {
		return nil, fmt.Errorf("parse score history: %w", err)
	}
	return s, nil
}

func (s *ScoreHistory) List(_ context.Context) ([]persistence.DayScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]persistence.DayScores, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *ScoreHistory) Append(_ context.Context, day persistence.DayScores) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.days[day.Date.Format("2006-01-02")] = day
	return writeJSONAtomic(s.path, s.days)
}

func (s *ScoreHistory) Prune(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for key, d := range s.days {
		if d.Date.Before(cutoff) {
			delete(s.days, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeJSONAtomic(s.path, s.days)
}
