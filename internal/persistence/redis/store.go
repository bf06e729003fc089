// Package redis provides a Redis-backed ScoreHistoryRepo. Each day's
// distribution is stored as a JSON value keyed by date, with a sorted-set
// index (score = unix time) for range listing and age-based pruning.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/marketmate/marketmate/internal/persistence"
)

const (
	dayKeyPrefix = "marketmate:scores:"
	indexKey     = "marketmate:scores:index"
)

// ScoreHistory implements persistence.ScoreHistoryRepo on Redis.
type ScoreHistory struct {
	client *redis.Client
}

// NewScoreHistory wraps an existing Redis client.
func NewScoreHistory(client *redis.Client) *ScoreHistory {
	return &ScoreHistory{client: client}
}

func dayKey(date time.Time) string {
	return dayKeyPrefix + date.Format("2006-01-02")
}

func (s *ScoreHistory) List(ctx context.Context) ([]persistence.DayScores, error) {
	dates, err := s.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("list score history index: %w", err)
	}
	if len(dates) == 0 {
		return nil, nil
	}

	out := make([]persistence.DayScores, 0, len(dates))
	for _, date := range dates {
		raw, err := s.client.Get(ctx, dayKeyPrefix+date).Result()
		if err == redis.Nil {
			continue // index entry without payload, skip
		}
		if err != nil {
			return nil, fmt.Errorf("get day scores %s: %w", date, err)
		}
		var day persistence.DayScores
		if err := json.Unmarshal([]byte(raw), &day); err != nil {
			return nil, fmt.Errorf("decode day scores %s: %w", date, err)
		}
		out = append(out, day)
	}
	return out, nil
}

func (s *ScoreHistory) Append(ctx context.Context, day persistence.DayScores) error {
	payload, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("encode day scores: %w", err)
	}

	if err := s.client.Set(ctx, dayKey(day.Date), payload, 0).Err(); err != nil {
		return fmt.Errorf("store day scores: %w", err)
	}
	member := day.Date.Format("2006-01-02")
	if err := s.client.ZAdd(ctx, indexKey, &redis.Z{Score: float64(day.Date.Unix()), Member: member}).Err(); err != nil {
		return fmt.Errorf("index day scores: %w", err)
	}
	return nil
}

func (s *ScoreHistory) Prune(ctx context.Context, cutoff time.Time) error {
	maxScore := fmt.Sprintf("(%d", cutoff.Unix())
	stale, err := s.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return fmt.Errorf("list stale days: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	for _, date := range stale {
		if err := s.client.Del(ctx, dayKeyPrefix+date).Err(); err != nil {
			return fmt.Errorf("delete day scores %s: %w", date, err)
		}
	}
	if err := s.client.ZRemRangeByScore(ctx, indexKey, "-inf", maxScore).Err(); err != nil {
		return fmt.Errorf("trim score index: %w", err)
	}
	return nil
}
