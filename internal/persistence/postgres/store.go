// Package postgres provides sqlx-backed implementations of the persistence
// contracts for deployments that outgrow the JSON file stores.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/marketmate/marketmate/internal/persistence"
)

// ScoreHistory implements persistence.ScoreHistoryRepo on PostgreSQL.
type ScoreHistory struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewScoreHistory creates a Postgres score history repository.
func NewScoreHistory(db *sqlx.DB, timeout time.Duration) *ScoreHistory {
	return &ScoreHistory{db: db, timeout: timeout}
}

func (r *ScoreHistory) List(ctx context.Context) ([]persistence.DayScores, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT date, scores, mean, median, std, count
		FROM score_history
		ORDER BY date ASC`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list score history: %w", err)
	}
	defer rows.Close()

	var out []persistence.DayScores
	for rows.Next() {
		var day persistence.DayScores
		var scores pq.Float64Array
		if err := rows.Scan(&day.Date, &scores, &day.Mean, &day.Median, &day.Std, &day.Count); err != nil {
			return nil, fmt.Errorf("scan score history row: %w", err)
		}
		day.Scores = []float64(scores)
		out = append(out, day)
	}
	return out, rows.Err()
}

func (r *ScoreHistory) Append(ctx context.Context, day persistence.DayScores) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO score_history (date, scores, mean, median, std, count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date) DO UPDATE SET
			scores = EXCLUDED.scores,
			mean = EXCLUDED.mean,
			median = EXCLUDED.median,
			std = EXCLUDED.std,
			count = EXCLUDED.count`

	_, err := r.db.ExecContext(ctx, query,
		day.Date, pq.Float64Array(day.Scores), day.Mean, day.Median, day.Std, day.Count)
	if err != nil {
		return fmt.Errorf("append score history: %w", err)
	}
	return nil
}

func (r *ScoreHistory) Prune(ctx context.Context, cutoff time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM score_history WHERE date < $1`, cutoff); err != nil {
		return fmt.Errorf("prune score history: %w", err)
	}
	return nil
}

// TradeArchive implements persistence.TradeArchive on PostgreSQL.
type TradeArchive struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradeArchive creates a Postgres trade archive.
func NewTradeArchive(db *sqlx.DB, timeout time.Duration) *TradeArchive {
	return &TradeArchive{db: db, timeout: timeout}
}

func (r *TradeArchive) Archive(ctx context.Context, trade persistence.ArchivedTrade) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO trade_archive
			(id, ticker, entry_time, exit_time, quantity, entry_price, exit_price, pnl, pnl_percent, exit_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Ticker, trade.EntryTime, trade.ExitTime, trade.Quantity,
		trade.EntryPrice, trade.ExitPrice, trade.PnL, trade.PnLPercent, trade.ExitReason)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate trade %s: %w", trade.ID, err)
		}
		return fmt.Errorf("archive trade: %w", err)
	}
	return nil
}

func (r *TradeArchive) ListByTicker(ctx context.Context, ticker string, limit int) ([]persistence.ArchivedTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, ticker, entry_time, exit_time, quantity, entry_price, exit_price, pnl, pnl_percent, exit_reason
		FROM trade_archive
		WHERE ticker = $1
		ORDER BY exit_time DESC
		LIMIT $2`

	var out []persistence.ArchivedTrade
	if err := r.db.SelectContext(ctx, &out, query, ticker, limit); err != nil {
		return nil, fmt.Errorf("list archived trades: %w", err)
	}
	return out, nil
}
