// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/anchor/pkg/logger"
)

// ErrInvalidSchedule is returned for a cron expression that does not parse.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Sweeper runs the daily habit penalty sweep.
type Sweeper interface {
	RunSweep(ctx context.Context) error
}

// Scheduler triggers the sweep on a cron schedule in a fixed location.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	sweeper  Sweeper
	log      logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScheduler validates schedule (standard five-field cron or a descriptor
// such as "@daily") and returns a stopped Scheduler.
func NewScheduler(loc *time.Location, schedule string, sweeper Sweeper, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, schedule, err)
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		sweeper:  sweeper,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the sweep and starts the cron loop. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.log.Info(ctx, "scheduled sweep")
		if err := s.sweeper.RunSweep(ctx); err != nil {
			s.log.Error(ctx, "scheduled sweep failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, s.schedule, err)
	}
	s.cron.Start()
	s.log.Info(ctx, "scheduler started",
		logger.String("schedule", s.schedule),
		logger.String("location", s.cron.Location().String()))
	return nil
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts the loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info(context.Background(), "scheduler stopped")
}
