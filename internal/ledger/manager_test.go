package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmate/marketmate/internal/persistence"
	"github.com/marketmate/marketmate/internal/position"
	"github.com/marketmate/marketmate/internal/signal"
)

func ts(offset int) time.Time {
	return time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func bar(offset int, close float64) signal.Bar {
	return signal.Bar{Date: ts(offset), Price: close, High: close, Low: close, Close: close, Volume: 1000}
}

var testTargets = position.Targets{T1: 290, T2: 300, T3: 320}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(NewMemoryStore(), nil, position.Costs{})
	require.NoError(t, err)
	return m
}

func TestOpenRejectsDuplicate(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	_, err = m.Open("VOLV-B", 280, ts(1), 100, 272, testTargets, signal.TierHalf, 70)
	assert.Error(t, err, "one open position per ticker")

	_, err = m.Open("ERIC-B", 80, ts(1), 100, 77, position.Targets{T1: 83, T2: 86, T3: 92}, signal.TierHalf, 70)
	assert.NoError(t, err, "other tickers unaffected")
}

func TestOpenReopensAfterClose(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	record, err := m.Advance(ctx, "VOLV-B", bar(1, 269), 0)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, position.StopLoss, record.Reason)

	_, err = m.Open("VOLV-B", 275, ts(2), 200, 268, testTargets, signal.TierHalf, 70)
	assert.NoError(t, err)
}

func TestAdvanceUnknownTickerIsNoop(t *testing.T) {
	m := newTestManager(t)
	record, err := m.Advance(context.Background(), "NOPE", bar(0, 100), 0)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestAdvancePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewFileStore(path)

	m, err := NewManager(store, nil, position.Costs{})
	require.NoError(t, err)
	_, err = m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	record, err := m.Advance(context.Background(), "VOLV-B", bar(1, 292), 0)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, position.Target1, record.Reason)

	// Fresh manager over the same file sees the partial state.
	reloaded, err := NewManager(NewFileStore(path), nil, position.Costs{})
	require.NoError(t, err)
	pos, ok := reloaded.Get("VOLV-B")
	require.True(t, ok)
	assert.Equal(t, position.StatusPartial, pos.Status)
	assert.Equal(t, int64(200), pos.RemainingQuantity)
	assert.Equal(t, 1, pos.TranchesSold)
	assert.Equal(t, 278.0, pos.StopLoss)
}

type flakyStore struct {
	Store
	fail bool
}

func (s *flakyStore) Save(positions map[string]*position.Position) error {
	if s.fail {
		return fmt.Errorf("disk full")
	}
	return s.Store.Save(positions)
}

func TestAdvanceRollsBackOnSaveFailure(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	m, err := NewManager(store, nil, position.Costs{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	// A target-1 tick that cannot be persisted leaves the book on the last
	// durable state, so the tick can be replayed.
	store.fail = true
	_, err = m.Advance(ctx, "VOLV-B", bar(1, 292), 0)
	require.Error(t, err)

	pos, ok := m.Get("VOLV-B")
	require.True(t, ok)
	assert.Equal(t, position.StatusOpen, pos.Status)
	assert.Equal(t, int64(300), pos.RemainingQuantity)
	assert.Equal(t, 0, pos.TranchesSold)
	assert.Equal(t, 270.0, pos.StopLoss)
	assert.Empty(t, pos.Exits)

	// Replaying the same tick once the store recovers executes the exit.
	store.fail = false
	record, err := m.Advance(ctx, "VOLV-B", bar(1, 292), 0)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, position.Target1, record.Reason)

	pos, _ = m.Get("VOLV-B")
	assert.Equal(t, position.StatusPartial, pos.Status)
	assert.Equal(t, int64(200), pos.RemainingQuantity)
}

func TestExecuteExitRollsBackOnSaveFailure(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	m, err := NewManager(store, nil, position.Costs{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	store.fail = true
	_, err = m.ExecuteExit(ctx, "VOLV-B", 100, 285, ts(1))
	require.Error(t, err)

	require.Error(t, m.UpdateStopLoss("VOLV-B", 274))

	pos, _ := m.Get("VOLV-B")
	assert.Equal(t, int64(300), pos.RemainingQuantity)
	assert.Equal(t, 270.0, pos.StopLoss)
}

func TestUpdateStopLoss(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	require.NoError(t, m.UpdateStopLoss("VOLV-B", 274))
	assert.Error(t, m.UpdateStopLoss("VOLV-B", 271), "lowering rejected")
	assert.Error(t, m.UpdateStopLoss("NOPE", 100), "unknown ticker rejected")

	pos, _ := m.Get("VOLV-B")
	assert.Equal(t, 274.0, pos.StopLoss)
}

func TestExecuteExit(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	record, err := m.ExecuteExit(ctx, "VOLV-B", 100, 285, ts(1))
	require.NoError(t, err)
	assert.Equal(t, position.Manual, record.Reason)

	_, err = m.ExecuteExit(ctx, "VOLV-B", 500, 285, ts(2))
	assert.Error(t, err, "oversell rejected")

	_, err = m.ExecuteExit(ctx, "NOPE", 10, 285, ts(2))
	assert.Error(t, err)
}

func TestActiveTickers(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	assert.Empty(t, m.ActiveTickers())

	_, err := m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)
	_, err = m.Open("ERIC-B", 80, ts(0), 100, 77, position.Targets{T1: 83, T2: 86, T3: 92}, signal.TierHalf, 70)
	require.NoError(t, err)
	assert.Len(t, m.ActiveTickers(), 2)

	_, err = m.Advance(ctx, "ERIC-B", bar(1, 76), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"VOLV-B"}, m.ActiveTickers())
}

func TestArchiveReceivesClosedTrades(t *testing.T) {
	archive := &capturingArchive{}
	m, err := NewManager(NewMemoryStore(), archive, position.Costs{})
	require.NoError(t, err)

	_, err = m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	_, err = m.Advance(context.Background(), "VOLV-B", bar(1, 269), 0)
	require.NoError(t, err)

	require.Len(t, archive.trades, 1)
	trade := archive.trades[0]
	assert.Equal(t, "VOLV-B", trade.Ticker)
	assert.Equal(t, int64(300), trade.Quantity)
	assert.Equal(t, "STOP_LOSS", trade.ExitReason)
	assert.NotEmpty(t, trade.ID)
}

func TestArchiveFailureDoesNotBlockExit(t *testing.T) {
	archive := &capturingArchive{fail: true}
	m, err := NewManager(NewMemoryStore(), archive, position.Costs{})
	require.NoError(t, err)

	_, err = m.Open("VOLV-B", 278, ts(0), 300, 270, testTargets, signal.TierFull, 85)
	require.NoError(t, err)

	record, err := m.Advance(context.Background(), "VOLV-B", bar(1, 269), 0)
	require.NoError(t, err, "archive failures are logged, not propagated")
	assert.NotNil(t, record)
}

type capturingArchive struct {
	trades []persistence.ArchivedTrade
	fail   bool
}

func (a *capturingArchive) Archive(_ context.Context, trade persistence.ArchivedTrade) error {
	if a.fail {
		return fmt.Errorf("archive unavailable")
	}
	a.trades = append(a.trades, trade)
	return nil
}

func (a *capturingArchive) ListByTicker(_ context.Context, ticker string, limit int) ([]persistence.ArchivedTrade, error) {
	return a.trades, nil
}
