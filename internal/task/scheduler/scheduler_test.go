package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jalemieux/hermes/internal/task/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNowUnknownJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	err := s.RunNow("nope")
	assert.True(t, errors.Is(err, domain.ErrUnknownJob))
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	err := s.Register(JobSweep, "not a cron spec", time.Second, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	s := NewScheduler()
	release := make(chan struct{})
	var runs int32
	require.NoError(t, s.Register(JobIngest, "", time.Minute, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}))

	require.NoError(t, s.RunNow(JobIngest))
	err := s.RunNow(JobIngest)
	assert.True(t, errors.Is(err, domain.ErrJobRunning))

	close(release)
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestRunGetsTimeout(t *testing.T) {
	s := NewScheduler()
	done := make(chan error, 1)
	require.NoError(t, s.Register(JobDigest, "", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	}))

	require.NoError(t, s.RunNow(JobDigest))

	select {
	case err := <-done:
		assert.Equal(t, context.DeadlineExceeded, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled by its timeout")
	}
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopCancelsInFlightRuns(t *testing.T) {
	s := NewScheduler()
	started := make(chan struct{})
	require.NoError(t, s.Register(JobRetention, "", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	require.NoError(t, s.RunNow(JobRetention))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.Equal(t, []string{JobRetention}, s.Jobs())
}
