// Package scheduler drives the recurring daily scan cycle on a cron
// schedule. It owns no trading logic; it only triggers the scan runner and
// reports failures.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner executes one scan cycle for a date.
type Runner interface {
	RunCycle(ctx context.Context, date time.Time) error
}

// Config controls the scan schedule.
type Config struct {
	// Spec is a standard 5-field cron expression evaluated in Location.
	Spec     string `yaml:"spec"`
	Location string `yaml:"location"`

	// Timeout bounds one cycle; an overrunning cycle is cancelled, not
	// stacked behind the next.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig schedules a scan every weekday after the Stockholm close.
func DefaultConfig() Config {
	return Config{
		Spec:     "30 17 * * 1-5",
		Location: "Europe/Stockholm",
		Timeout:  10 * time.Minute,
	}
}

// Scheduler runs scan cycles on the configured cron schedule.
type Scheduler struct {
	config Config
	runner Runner
	cron   *cron.Cron
}

// New builds a scheduler. The cron entry is registered on Start.
func New(config Config, runner Runner) (*Scheduler, error) {
	loc, err := time.LoadLocation(config.Location)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		config: config,
		runner: runner,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}, nil
}

// Start registers the scan job and begins the schedule. Non-blocking.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.config.Spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("spec", s.config.Spec).Str("location", s.config.Location).
		Msg("scan schedule started")
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("scan schedule stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	date := time.Now().Truncate(24 * time.Hour)
	if err := s.runner.RunCycle(ctx, date); err != nil {
		log.Error().Err(err).Time("date", date).Msg("scheduled scan cycle failed")
		return
	}
	log.Info().Time("date", date).Msg("scheduled scan cycle complete")
}
