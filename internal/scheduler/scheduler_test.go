package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, clock clockwork.Clock) *Scheduler {
	t.Helper()
	s, err := New(clock, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestScheduler_RegisterTask(t *testing.T) {
	s := newTestScheduler(t, nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "b", Name: "B", Interval: time.Minute, Func: noop}))
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "a", Name: "A", Interval: time.Hour, Func: noop}))

	assert.Error(t, s.RegisterTask(TaskConfig{ID: "a", Name: "A", Interval: time.Hour, Func: noop}), "duplicate id")
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "c", Name: "C", Func: noop}), "missing interval")

	tasks := s.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "1h0m0s", tasks[0].Interval)

	_, err := s.GetTask("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "d", Name: "D", Interval: time.Hour}), "missing func")
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(t, nil)
	boom := errors.New("probe failed")
	var calls atomic.Int32

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:       "probe",
		Name:     "Probe",
		Interval: time.Hour,
		Func: func(context.Context) error {
			if calls.Add(1) == 1 {
				return boom
			}
			return nil
		},
	}))

	assert.ErrorIs(t, s.RunNow("probe"), boom)
	info, err := s.GetTask("probe")
	require.NoError(t, err)
	assert.Equal(t, "probe failed", info.LastError)
	assert.NotNil(t, info.LastRun)

	require.NoError(t, s.RunNow("probe"))
	info, _ = s.GetTask("probe")
	assert.Empty(t, info.LastError)
	assert.Equal(t, 2, info.Runs)
	assert.Equal(t, 1, info.Failures)

	assert.ErrorIs(t, s.RunNow("missing"), ErrTaskNotFound)
}

func TestScheduler_RunNowWhileRunning(t *testing.T) {
	s := newTestScheduler(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:       "slow",
		Name:     "Slow",
		Interval: time.Hour,
		Func: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))

	done := make(chan error, 1)
	go func() { done <- s.RunNow("slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow("slow"), ErrTaskRunning)
	info, err := s.GetTask("slow")
	require.NoError(t, err)
	assert.True(t, info.Running)

	close(release)
	require.NoError(t, <-done)
	info, _ = s.GetTask("slow")
	assert.False(t, info.Running)
	assert.Equal(t, 1, info.Runs)
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestScheduler(t, clock)
	var calls atomic.Int32

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "sweep",
		Name:       "Sweep",
		Interval:   time.Minute,
		RunOnStart: true,
		Func: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}))
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond, "run on start")

	// Keep nudging the fake clock until gocron has armed and fired its timer.
	assert.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return calls.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond)
}
