package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the rolling score window",
		Long:  "Print diagnostics for the percentile window ending at a date: sample count, distribution moments, and the live tier thresholds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), dateStr)
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "window end date (YYYY-MM-DD)")
	return cmd
}

func runHistory(ctx context.Context, dateStr string) error {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	stats, ok := a.sizer.WindowStats(date)
	if !ok {
		fmt.Printf("No score history in the %d-day window ending %s.\n", stats.WindowDays, dateStr)
		return nil
	}

	fmt.Printf("Score window ending %s (%d days)\n", dateStr, stats.WindowDays)
	fmt.Printf("  samples: %d\n", stats.DataPoints)
	fmt.Printf("  mean %.2f  median %.2f  std %.2f  min %.2f  max %.2f\n",
		stats.Mean, stats.Median, stats.Std, stats.Min, stats.Max)
	fmt.Printf("  tier thresholds: full >= %.2f  half >= %.2f  quarter >= %.2f\n",
		stats.Percentile80, stats.Percentile60, stats.Percentile40)
	return nil
}
