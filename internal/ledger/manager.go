// Package ledger manages the live position book: opening positions,
// advancing them against prices, enforcing the stop ratchet, and persisting
// every mutation through a whole-ledger store.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/marketmate/marketmate/internal/metrics"
	"github.com/marketmate/marketmate/internal/persistence"
	"github.com/marketmate/marketmate/internal/position"
	"github.com/marketmate/marketmate/internal/signal"
)

// Manager is the single writer over the position ledger. All mutations are
// serialized by its mutex and flushed to the store before returning.
type Manager struct {
	mu        sync.Mutex
	store     Store
	archive   persistence.TradeArchive // optional
	costs     position.Costs
	positions map[string]*position.Position // keyed by ticker
}

// NewManager loads the ledger from store. archive may be nil.
func NewManager(store Store, archive persistence.TradeArchive, costs position.Costs) (*Manager, error) {
	positions, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	m := &Manager{
		store:     store,
		archive:   archive,
		costs:     costs,
		positions: positions,
	}
	metrics.OpenPositions.Set(float64(len(m.activeLocked())))
	return m, nil
}

// Open creates a new position for ticker. A ticker can hold at most one
// open position at a time.
func (m *Manager) Open(ticker string, entryPrice float64, entryTime time.Time, quantity int64, stopLoss float64, targets position.Targets, tier signal.Tier, confidence float64) (*position.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.positions[ticker]; ok && existing.Status != position.StatusClosed {
		return nil, fmt.Errorf("position already open for %s", ticker)
	}

	pos, err := position.New(ticker, entryPrice, entryTime, quantity, stopLoss, targets, tier, confidence)
	if err != nil {
		return nil, err
	}

	m.positions[ticker] = pos
	if err := m.store.Save(m.positions); err != nil {
		delete(m.positions, ticker)
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	metrics.EntriesTotal.WithLabelValues(tier.String()).Inc()
	metrics.OpenPositions.Inc()
	log.Info().Str("ticker", ticker).Int64("quantity", quantity).
		Float64("entry", entryPrice).Float64("stop", stopLoss).
		Str("tier", tier.String()).Msg("position opened")
	return pos, nil
}

// Advance evaluates one pricing tick for a ticker's open position and
// persists any resulting exit or stop update. The transition is staged on a
// copy and only committed once the store write succeeds, so a failed save
// leaves the in-memory ledger matching the last durable state and the tick
// can be replayed.
func (m *Manager) Advance(ctx context.Context, ticker string, bar signal.Bar, atr float64) (*position.ExitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[ticker]
	if !ok || pos.Status == position.StatusClosed {
		return nil, nil
	}

	next := pos.Clone()
	record, err := next.Advance(bar, atr, m.costs)
	if err != nil {
		return nil, err
	}
	if record == nil && next.StopLoss == pos.StopLoss && next.HighestPrice == pos.HighestPrice {
		return nil, nil // nothing changed, skip the write
	}

	m.positions[ticker] = next
	if err := m.store.Save(m.positions); err != nil {
		m.positions[ticker] = pos
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	if record != nil {
		m.recordExit(ctx, next, record)
	}
	return record, nil
}

// ExecuteExit records a manual sale against an open position.
func (m *Manager) ExecuteExit(ctx context.Context, ticker string, quantity int64, price float64, ts time.Time) (*position.ExitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[ticker]
	if !ok || pos.Status == position.StatusClosed {
		return nil, fmt.Errorf("no open position for %s", ticker)
	}

	next := pos.Clone()
	record, err := next.ExitManual(ts, price, quantity, m.costs)
	if err != nil {
		return nil, err
	}

	m.positions[ticker] = next
	if err := m.store.Save(m.positions); err != nil {
		m.positions[ticker] = pos
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	m.recordExit(ctx, next, record)
	return record, nil
}

// UpdateStopLoss raises a position's stop. Lowering is rejected.
func (m *Manager) UpdateStopLoss(ticker string, newStop float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[ticker]
	if !ok || pos.Status == position.StatusClosed {
		return fmt.Errorf("no open position for %s", ticker)
	}
	next := pos.Clone()
	if err := next.RaiseStop(newStop); err != nil {
		return err
	}

	m.positions[ticker] = next
	if err := m.store.Save(m.positions); err != nil {
		m.positions[ticker] = pos
		return fmt.Errorf("persist ledger: %w", err)
	}

	log.Info().Str("ticker", ticker).Float64("stop", newStop).Msg("stop loss raised")
	return nil
}

// Get returns the position for a ticker, if any.
func (m *Manager) Get(ticker string) (*position.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[ticker]
	return pos, ok
}

// ActiveTickers lists tickers with open or partial positions.
func (m *Manager) ActiveTickers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked()
}

func (m *Manager) activeLocked() []string {
	var out []string
	for ticker, pos := range m.positions {
		if pos.Status != position.StatusClosed {
			out = append(out, ticker)
		}
	}
	return out
}

// recordExit emits metrics, logs, and archives the realized trade slice.
// Archive failures are logged, not fatal: the ledger itself is already
// consistent.
func (m *Manager) recordExit(ctx context.Context, pos *position.Position, record *position.ExitRecord) {
	metrics.ExitsTotal.WithLabelValues(record.Reason.String()).Inc()
	if pos.Status == position.StatusClosed {
		metrics.OpenPositions.Dec()
	}

	log.Info().Str("ticker", pos.Ticker).Str("reason", record.Reason.String()).
		Int64("quantity", record.Quantity).Float64("price", record.Price).
		Float64("pnl_per_unit", record.PnLPerUnit).Msg("exit executed")

	if m.archive == nil {
		return
	}
	trade := persistence.ArchivedTrade{
		ID:         uuid.NewString(),
		Ticker:     pos.Ticker,
		EntryTime:  pos.EntryTime,
		ExitTime:   record.Timestamp,
		Quantity:   record.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  record.Price,
		PnL:        record.PnLPerUnit * float64(record.Quantity),
		PnLPercent: record.PnLPerUnit / pos.EntryPrice * 100,
		ExitReason: record.Reason.String(),
	}
	if err := m.archive.Archive(ctx, trade); err != nil {
		log.Warn().Err(err).Str("ticker", pos.Ticker).Msg("trade archive write failed")
	}
}
