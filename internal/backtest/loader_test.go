package backtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBarsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	path := writeBarsFile(t, `date,high,low,close,volume,score,vix
2025-02-04,102,98,101,5000,7.5,18.2
2025-02-03,101,97,100,4000,6.0,
`)

	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	// Rows come back date-ascending regardless of file order.
	assert.Equal(t, "2025-02-03", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 6.0, bars[0].TechnicalScore)
	assert.Nil(t, bars[0].Risk.VIX, "empty vix cell stays unset")

	require.NotNil(t, bars[1].Risk.VIX)
	assert.Equal(t, 18.2, *bars[1].Risk.VIX)
	assert.True(t, bars[1].Valid())
}

func TestLoadBarsCSVMissingColumn(t *testing.T) {
	path := writeBarsFile(t, "date,close\n2025-02-03,100\n")
	_, err := LoadBarsCSV(path)
	assert.ErrorContains(t, err, "missing column")
}

func TestLoadBarsCSVBadRow(t *testing.T) {
	path := writeBarsFile(t, "date,high,low,close,volume,score\n2025-02-03,xx,97,100,4000,6\n")
	_, err := LoadBarsCSV(path)
	assert.ErrorContains(t, err, "row 2")
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	result := &Result{
		Config:    Config{Ticker: "VOLV-B", ModeName: "conservative"},
		StartDate: day(0),
		EndDate:   day(5),
		Trades:    []Trade{{Ticker: "VOLV-B", Quantity: 100, PnL: 500, PnLPercent: 5, ExitReason: "TARGET_1"}},
		Metrics:   Metrics{TotalTrades: 1, WinningTrades: 1, WinRate: 100},
	}

	require.NoError(t, w.WriteResult(result))
	require.NoError(t, w.WriteReport(result))

	for _, name := range []string{"result.json", "trades.jsonl", "report.md"} {
		_, err := os.Stat(filepath.Join(w.OutputDir(), name))
		assert.NoError(t, err, name)
	}

	report, err := os.ReadFile(filepath.Join(w.OutputDir(), "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "VOLV-B")
	assert.Contains(t, string(report), "TARGET_1")
}
