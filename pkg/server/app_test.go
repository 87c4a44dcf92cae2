package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"CandlePull/internal/domain/models"
	"CandlePull/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	runs atomic.Int32
}

func (s *countingSyncer) Run(context.Context) (models.RunReport, error) {
	s.runs.Add(1)
	return models.RunReport{Pairs: []models.PairReport{{Table: "BTCEUR_1h"}}}, nil
}

func TestRunOnceReleasesLock(t *testing.T) {
	lock := cache.NewMemoryCache()
	syncer := &countingSyncer{}
	app := New(Options{Sync: syncer, Lock: lock})

	report, err := app.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Pairs, 1)
	assert.EqualValues(t, 1, syncer.runs.Load())

	ok, err := lock.TryLock(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free after the run")
}

func TestRunOnceSkipsWhenLocked(t *testing.T) {
	lock := cache.NewMemoryCache()
	ok, err := lock.TryLock(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	syncer := &countingSyncer{}
	app := New(Options{Sync: syncer, Lock: lock})

	report, err := app.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
	assert.Zero(t, syncer.runs.Load())
}

func TestRunOnceFlagIgnoresSchedule(t *testing.T) {
	syncer := &countingSyncer{}
	app := New(Options{Sync: syncer, Every: time.Hour})

	require.NoError(t, app.Run(context.Background(), true))
	assert.EqualValues(t, 1, syncer.runs.Load())
}

func TestRunScheduledStopsAtDeadline(t *testing.T) {
	syncer := &countingSyncer{}
	app := New(Options{Sync: syncer, Every: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx, false))
	assert.GreaterOrEqual(t, syncer.runs.Load(), int32(2))
}

func TestRunScheduledStopsOnCancel(t *testing.T) {
	syncer := &countingSyncer{}
	app := New(Options{Sync: syncer, Every: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	require.NoError(t, app.Run(ctx, false))
	assert.GreaterOrEqual(t, syncer.runs.Load(), int32(1))
}

type failingServer struct{}

func (failingServer) Run(context.Context) error { return errors.New("listen tcp :8080: address already in use") }

func TestRunReportsServerFailure(t *testing.T) {
	app := New(Options{Sync: &countingSyncer{}, HTTP: failingServer{}, Every: time.Hour})

	err := app.Run(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}
