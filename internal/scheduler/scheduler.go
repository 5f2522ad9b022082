package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// JobType represents the kinds of background jobs
type JobType int

const (
	JobTypeGeocode JobType = iota
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeGeocode:
		return "geocode"
	default:
		return "unknown"
	}
}

var ErrUnknownJob = errors.New("unknown job")

// Job is a unit of background work. It should return promptly once ctx is done.
type Job func(ctx context.Context) error

// Scheduler runs registered jobs on a fixed interval, one at a time
type Scheduler struct {
	logger   *logrus.Logger
	interval time.Duration
	jobs     map[JobType]Job
	order    []JobType
	stopChan chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler
func NewScheduler(interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if interval <= 0 {
		interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:   logger,
		interval: interval,
		jobs:     make(map[JobType]Job),
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a job. Jobs run in registration order on every tick.
func (s *Scheduler) Register(jobType JobType, job Job) {
	if _, exists := s.jobs[jobType]; !exists {
		s.order = append(s.order, jobType)
	}
	s.jobs[jobType] = job
}

// Start runs every job once and then on each interval
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.logger.Info("Running startup jobs")
	s.runAll()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runAll()
		}
	}
}

func (s *Scheduler) runAll() {
	for _, jobType := range s.order {
		if s.ctx.Err() != nil {
			return
		}
		if err := s.RunNow(jobType); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WithError(err).WithField("job_type", jobType.String()).Error("Scheduled job failed")
		}
	}
}

// RunNow runs a job immediately, waiting for any job already running
func (s *Scheduler) RunNow(jobType JobType) error {
	return s.RunNowContext(context.Background(), jobType)
}

// RunNowContext is RunNow for a caller with its own deadline. The job is
// cancelled when either ctx or the scheduler is done.
func (s *Scheduler) RunNowContext(ctx context.Context, jobType JobType) error {
	job, ok := s.jobs[jobType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobType)
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if err := s.ctx.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	start := time.Now()
	s.logger.WithField("job_type", jobType.String()).Debug("Starting job")
	err := job(jobCtx)
	s.logger.WithFields(logrus.Fields{
		"job_type": jobType.String(),
		"duration": time.Since(start).String(),
	}).Debug("Job finished")

	return err
}

// Stop gracefully stops the scheduler, cancelling any running job
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		close(s.stopChan)
	})
	s.wg.Wait()
}
