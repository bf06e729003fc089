package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls []time.Time
	err   error
}

func (r *recordingRunner) RunCycle(_ context.Context, date time.Time) error {
	r.calls = append(r.calls, date)
	return r.err
}

func TestNewValidatesLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = "Mars/Olympus"
	_, err := New(cfg, &recordingRunner{})
	assert.Error(t, err)
}

func TestStartRejectsBadSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spec = "not a cron spec"
	s, err := New(cfg, &recordingRunner{})
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestRunOnceInvokesRunner(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New(DefaultConfig(), runner)
	require.NoError(t, err)

	s.runOnce()
	require.Len(t, runner.calls, 1)
	assert.Equal(t, runner.calls[0].Truncate(24*time.Hour), runner.calls[0], "cycle date is day-truncated")
}

func TestRunOnceSwallowsRunnerError(t *testing.T) {
	runner := &recordingRunner{err: fmt.Errorf("provider down")}
	s, err := New(DefaultConfig(), runner)
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.runOnce() })
	assert.Len(t, runner.calls, 1)
}

func TestStartStop(t *testing.T) {
	s, err := New(DefaultConfig(), &recordingRunner{})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Stop()
}
