package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketmate/marketmate/internal/scan"
)

func newScanCmd() *cobra.Command {
	var (
		dateStr     string
		snapshotDir string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one universe scan cycle",
		Long:  "Evaluate the configured universe from a snapshot directory, rank and size the candidates, and print the cycle result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), dateStr, snapshotDir)
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "cycle date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&snapshotDir, "snapshots", "data/snapshots", "snapshot CSV directory")
	return cmd
}

func runScan(ctx context.Context, dateStr, snapshotDir string) error {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.cfg.Universe) == 0 {
		return fmt.Errorf("config has no universe tickers")
	}

	pipeline := scan.NewPipeline(a.cfg.Scan, scan.NewSnapshotEvaluator(snapshotDir), a.sizer, a.sectors)
	cycle, err := pipeline.Scan(ctx, date, a.cfg.Universe, a.book.ActiveTickers())
	if err != nil {
		return err
	}

	printCycle(cycle)
	return nil
}

func printCycle(cycle *scan.CycleResult) {
	if len(cycle.Candidates) == 0 {
		fmt.Printf("%s: no actionable candidates\n", cycle.Date.Format("2006-01-02"))
		return
	}

	fmt.Printf("%s: %d candidates\n", cycle.Date.Format("2006-01-02"), len(cycle.Candidates))
	fmt.Printf("%-10s %6s %6s %6s %-8s %-12s %s\n", "TICKER", "SCORE", "CONF", "PCTL", "TIER", "LEVEL", "NOTES")
	for _, c := range cycle.Candidates {
		note := ""
		if c.TopNOverride {
			note = c.OverrideReason
		}
		if c.SectorCapped {
			note = c.SectorCapReason
		}
		fmt.Printf("%-10s %6.2f %6.1f %6.1f %-8s %-12s %s\n",
			c.Ticker, c.RawScore, c.Confidence, c.Percentile, c.SizeTier, c.Level, note)
	}
	for _, failed := range cycle.Errors {
		fmt.Printf("excluded %s: %v\n", failed.Ticker, failed.Err)
	}
}
