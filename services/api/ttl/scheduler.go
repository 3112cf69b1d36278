// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ttl runs the background sweep that removes expired sessions.
package ttl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SweepStore is the store surface the scheduler needs.
type SweepStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time, limit int) (int, error)
}

// SchedulerConfig holds configuration for the session sweep scheduler.
//
// # Fields
//
//   - Interval: How often to run sweep cycles. Default: 15 minutes.
//   - BatchSize: Maximum sessions to delete per cycle. Default: 500.
type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultSchedulerConfig returns production-ready defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:  15 * time.Minute,
		BatchSize: 500,
	}
}

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	Deleted  int
	Duration time.Duration
}

// Scheduler periodically deletes expired sessions.
//
// # Description
//
// Manages the lifecycle of a background goroutine that sweeps the
// session keyspace at a fixed interval. Uses the ticker + done channel
// pattern for graceful shutdown.
//
// # Thread Safety
//
// All public methods are safe for concurrent use.
type Scheduler struct {
	store  SweepStore
	logger *slog.Logger
	config SchedulerConfig

	// now is injectable for tests.
	now func() time.Time

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a session sweep scheduler. Zero config fields
// fall back to DefaultSchedulerConfig values.
func NewScheduler(store SweepStore, logger *slog.Logger, config SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Scheduler{
		store:  store,
		logger: logger,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
		done:   make(chan struct{}),
	}
}

// Start begins the background sweep goroutine. Returns an error if the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("session sweep scheduler starting",
			slog.String("interval", s.config.Interval.String()),
			slog.Int("batch_size", s.config.BatchSize))
	}

	go s.runLoop(ctx)
	return nil
}

// Stop signals the scheduler to stop. Safe to call multiple times; it
// does not interrupt an in-progress sweep.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.done)
	s.running = false

	if s.logger != nil {
		s.logger.Info("session sweep scheduler stopping")
	}
}

// RunNow performs one sweep cycle immediately, independent of the
// schedule. A full batch triggers follow-up batches in the same call
// until the keyspace is drained or the context ends.
func (s *Scheduler) RunNow(ctx context.Context) (SweepResult, error) {
	start := s.now()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return SweepResult{Deleted: total, Duration: s.now().Sub(start)}, err
		}
		n, err := s.store.DeleteExpiredSessions(ctx, s.now(), s.config.BatchSize)
		total += n
		if err != nil {
			return SweepResult{Deleted: total, Duration: s.now().Sub(start)}, err
		}
		if n < s.config.BatchSize {
			break
		}
	}
	return SweepResult{Deleted: total, Duration: s.now().Sub(start)}, nil
}

func (s *Scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sweep once immediately on start.
	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep wraps RunNow so a failed cycle never crashes the
// scheduler goroutine.
func (s *Scheduler) executeSweep(ctx context.Context) {
	result, err := s.RunNow(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("session sweep failed",
				slog.Int("deleted", result.Deleted),
				slog.String("error", err.Error()))
		}
		return
	}
	if result.Deleted > 0 && s.logger != nil {
		s.logger.Info("session sweep complete",
			slog.Int("deleted", result.Deleted),
			slog.String("duration", result.Duration.String()))
	}
}
