package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// ErrNotRunning is returned by Trigger before Run has started or once its
// context is done.
var ErrNotRunning = errors.New("scheduler not running")

// Scheduler runs the coordinator once after a startup delay and then on a
// fixed period, and accepts manual triggers in between.
type Scheduler struct {
	coord        *Coordinator
	clock        clockwork.Clock
	logger       *slog.Logger
	interval     time.Duration
	startupDelay time.Duration

	mu  sync.Mutex
	ctx context.Context // lifetime of the active Run call, nil otherwise
	wg  sync.WaitGroup  // manual runs
}

// NewScheduler creates a scheduler for coord.
func NewScheduler(coord *Coordinator, clock clockwork.Clock, logger *slog.Logger, interval, startupDelay time.Duration) *Scheduler {
	return &Scheduler{
		coord:        coord,
		clock:        clock,
		logger:       logger,
		interval:     interval,
		startupDelay: startupDelay,
	}
}

// Interval is the scheduling period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run blocks until ctx is cancelled. Before returning it waits for any
// manually triggered run to wind down.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ctx = nil
		s.mu.Unlock()
		s.wg.Wait()
	}()

	s.logger.Info("scheduler started", "interval", s.interval, "startup_delay", s.startupDelay)

	select {
	case <-ctx.Done():
		return nil
	case <-s.clock.After(s.startupDelay):
	}
	s.coord.RunOnce(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.coord.RunOnce(ctx)
		}
	}
}

// Trigger starts a run in the background. It returns domain.ErrBusy without
// starting anything if a run is already in progress.
func (s *Scheduler) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil || s.ctx.Err() != nil {
		return ErrNotRunning
	}
	if !s.coord.acquire() {
		s.coord.skipped()
		return domain.ErrBusy
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.coord.release()
		s.coord.run(ctx)
	}()
	s.logger.Info("manual refresh started")
	return nil
}
