package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestJobTypeString(t *testing.T) {
	assert.Equal(t, "geocode", JobTypeGeocode.String())
	assert.Equal(t, "unknown", JobType(42).String())
}

func TestSchedulerRunsStartupAndTicks(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, quietLogger())

	var runs int32
	s.Register(JobTypeGeocode, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	s.Start()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 3
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs))
}

func TestSchedulerRunNow(t *testing.T) {
	s := NewScheduler(time.Hour, quietLogger())
	boom := errors.New("boom")
	s.Register(JobTypeGeocode, func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, s.RunNow(JobTypeGeocode), boom)
	assert.ErrorIs(t, s.RunNow(JobType(9)), ErrUnknownJob)
}

func TestSchedulerRunNowContext(t *testing.T) {
	s := NewScheduler(time.Hour, quietLogger())
	defer s.Stop()

	started := make(chan struct{})
	s.Register(JobTypeGeocode, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- s.RunNowContext(ctx, JobTypeGeocode) }()

	<-started
	cancel()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("job ignored the caller's context")
	}

	// An already cancelled caller does not start the job
	assert.ErrorIs(t, s.RunNowContext(ctx, JobTypeGeocode), context.Canceled)
}

func TestSchedulerStopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(time.Hour, quietLogger())

	started := make(chan struct{})
	var cancelled int32
	s.Register(JobTypeGeocode, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		atomic.StoreInt32(&cancelled, 1)
		return ctx.Err()
	})

	s.Start()
	<-started
	s.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled))
	assert.ErrorIs(t, s.RunNow(JobTypeGeocode), context.Canceled)

	// Stop is idempotent
	s.Stop()
}

func TestSchedulerJobsDoNotOverlap(t *testing.T) {
	s := NewScheduler(time.Hour, quietLogger())

	var active, maxActive int32
	s.Register(JobTypeGeocode, func(ctx context.Context) error {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			s.RunNow(JobTypeGeocode)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}
