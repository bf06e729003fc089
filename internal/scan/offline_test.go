package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEvaluator(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	content := `ticker,high,low,close,volume,score,vix
VOLV-B,281,276,279,120000,7.2,17.5
ERIC-B,62,60,61,90000,5.8,
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-05-12.csv"), []byte(content), 0644))

	e := NewSnapshotEvaluator(dir)
	ctx := context.Background()

	bar, err := e.Evaluate(ctx, "VOLV-B", date)
	require.NoError(t, err)
	assert.Equal(t, 279.0, bar.Close)
	assert.Equal(t, 7.2, bar.TechnicalScore)
	require.NotNil(t, bar.Risk.VIX)
	assert.Equal(t, 17.5, *bar.Risk.VIX)
	assert.True(t, bar.Valid())

	bar, err = e.Evaluate(ctx, "ERIC-B", date)
	require.NoError(t, err)
	assert.Nil(t, bar.Risk.VIX)

	_, err = e.Evaluate(ctx, "AZN", date)
	assert.Error(t, err, "missing ticker is a per-ticker data error")

	_, err = e.Evaluate(ctx, "VOLV-B", date.AddDate(0, 0, 1))
	assert.Error(t, err, "missing snapshot file")
}

func TestSnapshotEvaluatorMissingColumns(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-05-12.csv"), []byte("ticker,close\nVOLV-B,279\n"), 0644))

	e := NewSnapshotEvaluator(dir)
	_, err := e.Evaluate(context.Background(), "VOLV-B", date)
	assert.ErrorContains(t, err, "missing column")
}
