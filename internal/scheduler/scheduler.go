package scheduler

import (
	"context"
	"time"

	"github.com/klokku/cycleledger/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Job is invoked on every tick and decides itself whether the tick applies.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Scheduler ticks at the top of every hour.
type Scheduler struct {
	clock    utils.Clock
	interval time.Duration
	jobs     []Job
}

func New(clock utils.Clock, jobs ...Job) *Scheduler {
	return &Scheduler{clock: clock, interval: time.Hour, jobs: jobs}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log.Infof("scheduler started with %d job(s)", len(s.jobs))
	timer := time.NewTimer(untilNext(s.clock.Now(), s.interval))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-timer.C:
			now := s.clock.Now()
			s.Tick(ctx, now.Truncate(s.interval))
			timer.Reset(untilNext(s.clock.Now(), s.interval))
		}
	}
}

// Tick runs every job once for the given instant. Failures are logged.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, job := range s.jobs {
		s.run(ctx, job, now)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	started := time.Now()
	if err := job.Run(ctx, now); err != nil {
		log.Errorf("job %s failed: %v", job.Name(), err)
		return
	}
	log.Debugf("job %s finished in %s", job.Name(), time.Since(started))
}

// untilNext is the wait until the next multiple of interval, never zero.
func untilNext(now time.Time, interval time.Duration) time.Duration {
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
