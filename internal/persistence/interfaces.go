// Package persistence defines the repository contracts for the engine's two
// durable collections: the rolling score history used by the percentile
// sizer and the archive of completed trades. Implementations live in the
// file, redis, and postgres subpackages; the engine itself never touches
// storage directly.
package persistence

import (
	"context"
	"time"
)

// DayScores is one day's cross-sectional score distribution with its
// precomputed aggregates. Appended once per scan cycle, pruned by age.
type DayScores struct {
	Date   time.Time `json:"date" db:"date"`
	Scores []float64 `json:"scores" db:"-"`
	Mean   float64   `json:"mean" db:"mean"`
	Median float64   `json:"median" db:"median"`
	Std    float64   `json:"std" db:"std"`
	Count  int       `json:"count" db:"count"`
}

// ScoreHistoryRepo stores the rolling score history. The engine assumes a
// single writer; concurrent-writer deployments need an external lock.
type ScoreHistoryRepo interface {
	// List returns all stored days in ascending date order.
	List(ctx context.Context) ([]DayScores, error)

	// Append stores one day's distribution, replacing any existing entry
	// for the same date.
	Append(ctx context.Context, day DayScores) error

	// Prune removes entries dated strictly before cutoff.
	Prune(ctx context.Context, cutoff time.Time) error
}

// ArchivedTrade is a completed round-trip exit: one tranche or a full close.
type ArchivedTrade struct {
	ID         string    `json:"id" db:"id"`
	Ticker     string    `json:"ticker" db:"ticker"`
	EntryTime  time.Time `json:"entry_time" db:"entry_time"`
	ExitTime   time.Time `json:"exit_time" db:"exit_time"`
	Quantity   int64     `json:"quantity" db:"quantity"`
	EntryPrice float64   `json:"entry_price" db:"entry_price"`
	ExitPrice  float64   `json:"exit_price" db:"exit_price"`
	PnL        float64   `json:"pnl" db:"pnl"`
	PnLPercent float64   `json:"pnl_percent" db:"pnl_percent"`
	ExitReason string    `json:"exit_reason" db:"exit_reason"`
}

// TradeArchive persists completed trades for later analysis.
type TradeArchive interface {
	// Archive stores one completed trade.
	Archive(ctx context.Context, trade ArchivedTrade) error

	// ListByTicker returns archived trades for a ticker, newest first.
	ListByTicker(ctx context.Context, ticker string, limit int) ([]ArchivedTrade, error)
}
