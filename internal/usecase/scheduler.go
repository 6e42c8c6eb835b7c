package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"arxivwatch/internal/ports"
)

// Scheduler wires the cron-like driver with the watch use case.
type Scheduler struct {
	driver  ports.Scheduler
	watcher *Watcher
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring watch runs.
func NewScheduler(driver ports.Scheduler, watcher *Watcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, watcher: watcher, logger: logger}
}

// Start registers the watcher with the provided scheduler. A tick that fires
// while a run is still in flight is skipped; a panicking run never takes the
// scheduler down with it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.watcher == nil {
		return nil
	}

	var inFlight atomic.Bool
	job := func(trigger time.Time) {
		if !inFlight.CompareAndSwap(false, true) {
			s.logger.Warn("previous run still in flight, skipping tick", "trigger", trigger)
			return
		}
		defer inFlight.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("watch run panicked", "panic", r)
			}
		}()

		if _, err := s.watcher.Run(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
