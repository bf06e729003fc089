package persistence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryScoreHistory is an in-memory ScoreHistoryRepo for tests and
// single-run backtests that do not need durable history.
type MemoryScoreHistory struct {
	mu   sync.Mutex
	days map[string]DayScores
}

// NewMemoryScoreHistory returns an empty in-memory score history.
func NewMemoryScoreHistory() *MemoryScoreHistory {
	return &MemoryScoreHistory{days: make(map[string]DayScores)}
}

func (m *MemoryScoreHistory) List(_ context.Context) ([]DayScores, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]DayScores, 0, len(m.days))
	for _, d := range m.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryScoreHistory) Append(_ context.Context, day DayScores) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[day.Date.Format("2006-01-02")] = day
	return nil
}

func (m *MemoryScoreHistory) Prune(_ context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, d := range m.days {
		if d.Date.Before(cutoff) {
			delete(m.days, key)
		}
	}
	return nil
}
