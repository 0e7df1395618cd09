package alerting

import (
	"context"
	"time"

	"github.com/prepflow/prepflow-backend/pkg/logger"
)

// Scheduler runs the scanner periodically in a background goroutine
type Scheduler struct {
	scanner  *Scanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(scanner *Scanner, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler. The first scan runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	if err := s.scanner.ScanAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("alert scan cycle finished with errors")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("alert scan cycle completed")
}
