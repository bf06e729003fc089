// Package percentile sizes positions by ranking a score against a trailing
// cross-sectional distribution instead of fixed absolute thresholds.
// Absolute cutoffs drift as market-wide volatility shifts; relative ranking
// against a 30-day window adapts automatically.
package percentile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/marketmate/marketmate/internal/persistence"
	"github.com/marketmate/marketmate/internal/signal"
)

const (
	// DefaultWindowDays is the trailing window for percentile ranking.
	DefaultWindowDays = 30

	// retentionBufferDays of extra history are kept beyond the window
	// before pruning, so the window never runs dry on restart.
	retentionBufferDays = 60

	// minSamples is the smallest window that yields a meaningful
	// percentile; below it the sizer falls back to absolute scoring.
	minSamples = 10
)

// Sizer maps scores to percentiles and size tiers using a rolling window of
// daily score distributions backed by an injected repository.
type Sizer struct {
	windowDays int
	repo       persistence.ScoreHistoryRepo
	days       []persistence.DayScores // ascending by date
}

// NewSizer loads existing history from repo and returns a ready sizer.
func NewSizer(ctx context.Context, repo persistence.ScoreHistoryRepo, windowDays int) (*Sizer, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	days, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load score history: %w", err)
	}
	return &Sizer{windowDays: windowDays, repo: repo, days: days}, nil
}

// AddDailyScores appends one day's score distribution and prunes entries
// older than the window plus the retention buffer. Empty score sets are
// ignored. Pruning is relative to the inserted date so backtests replaying
// history stay deterministic.
func (s *Sizer) AddDailyScores(ctx context.Context, date time.Time, scores []float64) error {
	if len(scores) == 0 {
		return nil
	}

	day := persistence.DayScores{
		Date:   date.Truncate(24 * time.Hour),
		Scores: append([]float64(nil), scores...),
		Mean:   mean(scores),
		Median: median(scores),
		Std:    stddev(scores),
		Count:  len(scores),
	}

	if err := s.repo.Append(ctx, day); err != nil {
		return fmt.Errorf("append day scores: %w", err)
	}

	// Replace any in-memory entry for the same date.
	replaced := false
	for i := range s.days {
		if s.days[i].Date.Equal(day.Date) {
			s.days[i] = day
			replaced = true
			break
		}
	}
	if !replaced {
		s.days = append(s.days, day)
		sort.Slice(s.days, func(i, j int) bool { return s.days[i].Date.Before(s.days[j].Date) })
	}

	cutoff := day.Date.AddDate(0, 0, -(s.windowDays + retentionBufferDays))
	if err := s.repo.Prune(ctx, cutoff); err != nil {
		return fmt.Errorf("prune score history: %w", err)
	}
	kept := s.days[:0]
	for _, d := range s.days {
		if !d.Date.Before(cutoff) {
			kept = append(kept, d)
		}
	}
	s.days = kept
	return nil
}

// Percentile returns the fraction (x100) of window scores strictly below
// score. With fewer than minSamples historical points it falls back to the
// absolute mapping clamp(score/10, 0, 1)*100.
func (s *Sizer) Percentile(score float64, date time.Time) float64 {
	window := s.windowScores(date)
	if len(window) < minSamples {
		return math.Min(100, math.Max(0, (score/10)*100))
	}

	below := 0
	for _, v := range window {
		if v < score {
			below++
		}
	}
	return float64(below) / float64(len(window)) * 100
}

// PositionSize maps a score's percentile to a size tier. A minSize floor can
// only raise the tier, never lower it.
func (s *Sizer) PositionSize(score float64, date time.Time, minSize signal.Tier) signal.Tier {
	pct := s.Percentile(score, date)

	var tier signal.Tier
	switch {
	case pct >= 80: // top 20%
		tier = signal.TierFull
	case pct >= 60: // top 40%
		tier = signal.TierHalf
	case pct >= 40: // top 60%
		tier = signal.TierQuarter
	default:
		tier = signal.TierNone
	}
	return tier.Max(minSize)
}

// windowScores collects every score within the trailing window ending at
// date, inclusive on both ends.
func (s *Sizer) windowScores(date time.Time) []float64 {
	start := date.AddDate(0, 0, -s.windowDays)

	var all []float64
	for _, d := range s.days {
		if d.Date.Before(start) || d.Date.After(date) {
			continue
		}
		all = append(all, d.Scores...)
	}
	return all
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is the population standard deviation, matching the aggregates the
// window has always recorded.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
