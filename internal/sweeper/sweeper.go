// Package sweeper periodically purges orphaned tenant context records. An
// orphan can only appear if a process died between installing a context and
// its final clear; the record is inert until its session key is reissued,
// but the sweeper removes it long before that can matter.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"lakefence/internal/contextstore"
	"lakefence/internal/observability"
)

type Sweeper struct {
	purger   contextstore.Purger
	maxAge   time.Duration
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

func New(purger contextstore.Purger, schedule string, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		purger:   purger,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the purge job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("context sweeper started", "schedule", s.schedule, "max_age", s.maxAge)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep(ctx context.Context) {
	purged, err := s.purger.PurgeOlderThan(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("context sweep failed", "error", err)
		return
	}
	if purged > 0 {
		// Every purged record is a cleanup path that never ran.
		s.logger.Warn("purged orphaned tenant contexts", "count", purged, "max_age", s.maxAge)
		observability.OrphanedContextsPurgedTotal.Add(float64(purged))
	}
}
