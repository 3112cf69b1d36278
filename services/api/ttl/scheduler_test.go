// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ttl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSweepStore struct {
	mu      sync.Mutex
	pending int
	calls   int
	fail    error
}

func (f *fakeSweepStore) DeleteExpiredSessions(_ context.Context, _ time.Time, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return 0, f.fail
	}
	n := min(f.pending, limit)
	f.pending -= n
	return n, nil
}

func (f *fakeSweepStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunNowDrainsInBatches(t *testing.T) {
	store := &fakeSweepStore{pending: 1250}
	sched := NewScheduler(store, nil, SchedulerConfig{BatchSize: 500})

	result, err := sched.RunNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1250, result.Deleted)
	// Two full batches plus the final partial one.
	require.Equal(t, 3, store.callCount())
}

func TestRunNowPropagatesStoreError(t *testing.T) {
	failure := errors.New("disk full")
	store := &fakeSweepStore{fail: failure}
	sched := NewScheduler(store, nil, SchedulerConfig{})

	_, err := sched.RunNow(context.Background())
	require.ErrorIs(t, err, failure)
}

func TestStartRejectsDoubleStart(t *testing.T) {
	store := &fakeSweepStore{}
	sched := NewScheduler(store, nil, SchedulerConfig{Interval: time.Hour})
	defer sched.Stop()

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	require.Error(t, sched.Start(ctx))
}

func TestStartSweepsImmediately(t *testing.T) {
	store := &fakeSweepStore{pending: 3}
	sched := NewScheduler(store, nil, SchedulerConfig{Interval: time.Hour})
	defer sched.Stop()

	require.NoError(t, sched.Start(context.Background()))
	require.Eventually(t, func() bool { return store.callCount() >= 1 },
		time.Second, 5*time.Millisecond)
}

func TestStopIdempotent(t *testing.T) {
	sched := NewScheduler(&fakeSweepStore{}, nil, SchedulerConfig{Interval: time.Hour})
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
	sched.Stop()

	// The scheduler can be started again after a stop.
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
}
