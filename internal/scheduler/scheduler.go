// Package scheduler runs imports on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/importer"
)

// ImportFunc runs one import over the given day window.
type ImportFunc func(ctx context.Context, days int) (*importer.Summary, error)

// Scheduler triggers periodic imports. Failures are logged and the
// schedule keeps running; one bad run must not stop future runs.
type Scheduler struct {
	sched    *gocron.Scheduler
	runner   ImportFunc
	interval time.Duration
	days     int
	log      *zap.Logger
}

// New builds a scheduler that calls runner every interval with the
// configured day window.
func New(runner ImportFunc, interval time.Duration, days int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		sched:    gocron.NewScheduler(time.UTC),
		runner:   runner,
		interval: interval,
		days:     days,
		log:      log,
	}
}

// Start begins the periodic schedule without blocking. The context is
// passed through to each run so shutdown cancels in-flight imports.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.sched.Every(s.interval).Do(func() {
		summary, err := s.runner(ctx, s.days)
		if err != nil {
			s.log.Error("scheduled import failed", zap.Error(err))
			return
		}
		s.log.Info("scheduled import finished",
			zap.String("run_id", summary.RunID.String()),
			zap.Int64("locations", summary.Locations),
			zap.Int64("sensors", summary.Sensors),
			zap.Int64("measurements", summary.Measurements),
			zap.Int("skips", len(summary.Skips)))
	})
	if err != nil {
		return err
	}
	s.sched.StartAsync()
	return nil
}

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.sched.Stop()
}
