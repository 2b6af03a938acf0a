package services

import (
	"context"
	"errors"
	"time"

	"aem-portal-sync/internal/interfaces"

	"github.com/ternarybob/arbor"
)

// Scheduler fires the sync job on a fixed interval. It is a plain timer:
// no catch-up, no jitter. A tick that lands while a run is still active
// (a long manual run, typically) is skipped and logged.
type Scheduler struct {
	syncer   interfaces.SyncRunner
	interval time.Duration
	onStart  bool
	logger   arbor.ILogger
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(syncer interfaces.SyncRunner, interval time.Duration, onStart bool, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		onStart:  onStart,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the timer loop. The invocation itself carries no input;
// each tick simply calls the orchestration entry point.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		s.logger.Info().
			Str("interval", s.interval.String()).
			Msg("Sync scheduler started")

		if s.onStart {
			s.trigger(ctx)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.trigger(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the timer loop and waits for it to exit. A run already in
// flight is not interrupted.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info().Msg("Sync scheduler stopped")
}

func (s *Scheduler) trigger(ctx context.Context) {
	if _, err := s.syncer.Run(ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			s.logger.Warn().Msg("Scheduled sync skipped: previous run still active")
			return
		}
		// Run already wrote its SyncLog where it could; this is purely
		// diagnostic.
		s.logger.Error().Err(err).Msg("Scheduled sync failed")
	}
}
