// Package scheduler re-runs report generation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // timezones work on hosts without zoneinfo

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one scheduled run. The context is cancelled when the scheduler stops.
type Task func(ctx context.Context) error

// Scheduler runs a single task on a cron expression
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	location *time.Location
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// New creates a scheduler in the given timezone
func New(timezone string, logger *zap.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		// a run that is still going when the next tick fires is skipped
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		location: loc,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}, nil
}

// Schedule registers task under a standard 5-field expression or a
// descriptor such as @hourly, replacing any previous task
func (s *Scheduler) Schedule(expr string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	entryID, err := s.cron.AddFunc(expr, func() { s.run(task) })
	if err != nil {
		return fmt.Errorf("adding cron entry: %w", err)
	}
	s.entryID = entryID

	s.logger.Info("Report scheduled",
		zap.String("cron", expr),
		zap.String("timezone", s.location.String()))
	return nil
}

// RunNow executes task immediately on the caller's goroutine
func (s *Scheduler) RunNow(task Task) {
	s.run(task)
}

func (s *Scheduler) run(task Task) {
	start := time.Now()
	if err := task(s.ctx); err != nil {
		s.logger.Error("Scheduled run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Info("Scheduled run completed", zap.Duration("elapsed", time.Since(start)))
}

// Next returns the next activation time, or zero if nothing is scheduled
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running tasks and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
