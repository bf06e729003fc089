package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Show the open position book",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPositions(cmd.Context())
		},
	}
	return cmd
}

func runPositions(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	tickers := a.book.ActiveTickers()
	if len(tickers) == 0 {
		fmt.Println("No open positions.")
		return nil
	}

	fmt.Printf("%-10s %-8s %8s %10s %10s %8s %10s\n",
		"TICKER", "STATUS", "QTY", "ENTRY", "STOP", "TRANCHES", "PNL")
	for _, ticker := range tickers {
		pos, ok := a.book.Get(ticker)
		if !ok {
			continue
		}
		fmt.Printf("%-10s %-8s %8d %10.2f %10.2f %8d %10.2f\n",
			pos.Ticker, pos.Status, pos.RemainingQuantity, pos.EntryPrice,
			pos.StopLoss, pos.TranchesSold, pos.RealizedPnL())
	}

	div := a.sectors.CheckDiversification(tickers)
	if !div.Diversified {
		for _, warning := range div.Warnings {
			fmt.Printf("diversification warning: %s\n", warning)
		}
	}
	return nil
}
