package core

// scheduler.go drops datasets and runs older than DatasetTTL.
//
// The sweeper is long-running and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired entries are dropped.
const DefaultSweepInterval = time.Minute

// StartExpiryScheduler runs Sweep every interval until ctx is cancelled.
func (s *Service) StartExpiryScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("expiry scheduler started",
		"interval", interval.String(),
		"ttl", s.cfg.DatasetTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry scheduler stopped")
			return
		case <-ticker.C:
			datasets, runs := s.Sweep()
			if datasets > 0 || runs > 0 {
				slog.Info("expired entries dropped", "datasets", datasets, "runs", runs)
			}
		}
	}
}

// Sweep drops every dataset and run created more than DatasetTTL ago and
// returns how many of each were removed.
func (s *Service) Sweep() (datasets, runs int) {
	cutoff := s.now().Add(-s.cfg.DatasetTTL)

	s.mu.Lock()
	for id, ds := range s.datasets {
		if ds.createdAt.Before(cutoff) {
			delete(s.datasets, id)
			datasets++
		}
	}
	for id, run := range s.runs {
		if run.createdAt.Before(cutoff) {
			delete(s.runs, id)
			runs++
		}
	}
	s.mu.Unlock()

	if datasets > 0 || runs > 0 {
		s.recordStored()
	}
	return datasets, runs
}
