package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketmate/marketmate/internal/backtest"
	"github.com/marketmate/marketmate/internal/percentile"
	"github.com/marketmate/marketmate/internal/persistence"
	"github.com/marketmate/marketmate/internal/signal"
)

func newBacktestCmd() *cobra.Command {
	var (
		barsPath string
		ticker   string
		capital  float64
		modeName string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a bar series through the engine",
		Long:  "Run the full entry/exit lifecycle over a historical CSV bar series and write trade artifacts and a report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd.Context(), barsPath, ticker, capital, modeName, output)
		},
	}

	cmd.Flags().StringVar(&barsPath, "bars", "", "CSV bar series (required)")
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker label for the series (required)")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "initial capital")
	addModeFlag(cmd.Flags(), &modeName, "conservative")
	cmd.Flags().StringVar(&output, "output", "artifacts/backtest", "artifact output directory")
	_ = cmd.MarkFlagRequired("bars")
	_ = cmd.MarkFlagRequired("ticker")

	return cmd
}

func runBacktest(ctx context.Context, barsPath, ticker string, capital float64, modeName, output string) error {
	mode, err := signal.ParseMode(modeName)
	if err != nil {
		return err
	}

	bars, err := backtest.LoadBarsCSV(barsPath)
	if err != nil {
		return err
	}

	// Backtests always run against a fresh in-memory window so results never
	// depend on live score history.
	sizer, err := percentile.NewSizer(ctx, persistence.NewMemoryScoreHistory(), 0)
	if err != nil {
		return err
	}

	cfg := backtest.DefaultConfig()
	cfg.Ticker = ticker
	cfg.InitialCapital = capital
	cfg.Mode = mode
	cfg.ModeName = mode.String()
	cfg.OutputDir = output

	engine := backtest.NewEngine(cfg, backtest.NewModeRule(mode, sizer))
	result, err := engine.Run(ctx, bars)
	if err != nil {
		return err
	}

	writer := backtest.NewWriter(output)
	if err := writer.WriteResult(result); err != nil {
		return err
	}
	if err := writer.WriteReport(result); err != nil {
		return err
	}

	m := result.Metrics
	if m.Empty {
		fmt.Printf("No trades generated over %d bars.\n", len(bars))
		return nil
	}
	fmt.Printf("Backtest %s (%s): %d trades, return %.2f%%, win rate %.1f%%, max drawdown %.2f%%\n",
		ticker, mode, m.TotalTrades, m.TotalReturn, m.WinRate, m.MaxDrawdown)
	fmt.Printf("Artifacts: %s\n", writer.OutputDir())
	return nil
}
