// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pdiddy/paper-engine/internal/cache"
)

// purgeTimeout bounds one scheduled purge.
const purgeTimeout = time.Minute

// PurgeScheduler removes expired cache entries on a cron schedule.
type PurgeScheduler struct {
	cron   *cron.Cron
	store  cache.Store
	logger *slog.Logger
}

// NewPurgeScheduler parses schedule (standard five-field cron or a
// descriptor such as "@hourly") and registers the purge job. Call Start to
// begin running it.
func NewPurgeScheduler(schedule string, store cache.Store, logger *slog.Logger) (*PurgeScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PurgeScheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store:  store,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parsing purge schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *PurgeScheduler) Start() {
	s.cron.Start()
	s.logger.Info("cache purge scheduled", "next", s.cron.Entries()[0].Next)
}

// Stop halts the schedule and waits for a running purge to finish.
func (s *PurgeScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce purges expired entries and returns how many were removed.
func (s *PurgeScheduler) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()
	removed, err := s.store.Purge(ctx, cache.PurgeExpired)
	if err != nil {
		s.logger.Error("scheduled cache purge failed", "error", err)
		return 0
	}
	s.logger.Info("scheduled cache purge", "removed", removed)
	return removed
}
