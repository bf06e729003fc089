package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer persists backtest artifacts: trades as JSONL, the full result as
// JSON, and a human-readable markdown report. Artifacts land in a dated
// subdirectory of the configured output dir.
type Writer struct {
	outputDir string
}

// NewWriter creates an artifact writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	dateDir := time.Now().Format("2006-01-02")
	return &Writer{outputDir: filepath.Join(outputDir, dateDir)}
}

// OutputDir returns the full (dated) output directory path.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// WriteResult writes result.json plus trades.jsonl.
func (w *Writer) WriteResult(result *Result) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.outputDir, "result.json"), data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	file, err := os.Create(filepath.Join(w.outputDir, "trades.jsonl"))
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer file.Close()

	for _, trade := range result.Trades {
		line, err := json.Marshal(trade)
		if err != nil {
			return fmt.Errorf("marshal trade: %w", err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write trade: %w", err)
		}
	}
	return nil
}

// WriteReport renders the run summary as report.md.
func (w *Writer) WriteReport(result *Result) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var b strings.Builder
	m := result.Metrics

	fmt.Fprintf(&b, "# Backtest Report: %s\n\n", result.Config.Ticker)
	fmt.Fprintf(&b, "**Period:** %s to %s  \n", result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Mode:** %s  \n", result.Config.ModeName)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", time.Now().Format(time.RFC3339))

	if m.Empty {
		b.WriteString("No trades were generated over the period.\n")
		return os.WriteFile(filepath.Join(w.outputDir, "report.md"), []byte(b.String()), 0644)
	}

	b.WriteString("## Performance\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Initial Capital | %.2f |\n", m.InitialCapital)
	fmt.Fprintf(&b, "| Final Value | %.2f |\n", m.FinalValue)
	fmt.Fprintf(&b, "| Total Return | %.2f%% |\n", m.TotalReturn)
	fmt.Fprintf(&b, "| CAGR | %.2f%% |\n", m.CAGR)
	fmt.Fprintf(&b, "| Trades | %d (%d W / %d L) |\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Fprintf(&b, "| Win Rate | %.1f%% |\n", m.WinRate)
	fmt.Fprintf(&b, "| Avg Gain | %.2f%% |\n", m.AvgGain)
	fmt.Fprintf(&b, "| Avg Loss | %.2f%% |\n", m.AvgLoss)
	fmt.Fprintf(&b, "| Max Drawdown | %.2f%% |\n", m.MaxDrawdown)
	fmt.Fprintf(&b, "| Sharpe (per-trade) | %.2f |\n", m.SharpeRatio)
	fmt.Fprintf(&b, "| Profit Factor | %.2f |\n", m.ProfitFactor)

	b.WriteString("\n## Trades\n\n")
	b.WriteString("| Entry | Exit | Qty | Entry Px | Exit Px | PnL | PnL % | Reason |\n")
	b.WriteString("|-------|------|-----|----------|---------|-----|-------|--------|\n")
	for _, t := range result.Trades {
		fmt.Fprintf(&b, "| %s | %s | %d | %.2f | %.2f | %.2f | %.2f%% | %s |\n",
			t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
			t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPercent, t.ExitReason)
	}

	return os.WriteFile(filepath.Join(w.outputDir, "report.md"), []byte(b.String()), 0644)
}
