package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketmate/marketmate/internal/scan"
	"github.com/marketmate/marketmate/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var (
		snapshotDir string
		listenAddr  string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily scan loop",
		Long:  "Start the cron-driven scan cycle and serve Prometheus metrics until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), snapshotDir, listenAddr)
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshots", "data/snapshots", "snapshot CSV directory")
	cmd.Flags().StringVar(&listenAddr, "listen", ":9090", "metrics listen address")
	return cmd
}

// cycleRunner adapts the scan pipeline to the scheduler contract.
type cycleRunner struct {
	app      *app
	pipeline *scan.Pipeline
}

func (r *cycleRunner) RunCycle(ctx context.Context, date time.Time) error {
	cycle, err := r.pipeline.Scan(ctx, date, r.app.cfg.Universe, r.app.book.ActiveTickers())
	if err != nil {
		return err
	}
	log.Info().Time("date", date).Int("candidates", len(cycle.Candidates)).Msg("cycle recorded")
	return nil
}

func runSchedule(ctx context.Context, snapshotDir, listenAddr string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.cfg.Universe) == 0 {
		return fmt.Errorf("config has no universe tickers")
	}

	runner := &cycleRunner{
		app:      a,
		pipeline: scan.NewPipeline(a.cfg.Scan, scan.NewSnapshotEvaluator(snapshotDir), a.sizer, a.sectors),
	}

	sched, err := scheduler.New(a.cfg.Schedule, runner)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: listenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Info().Str("addr", listenAddr).Msg("metrics endpoint up")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
