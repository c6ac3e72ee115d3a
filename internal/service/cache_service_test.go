package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{ err error }

func (f failingCacheRepo) Get(context.Context, string, interface{}) error { return f.err }
func (f failingCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return f.err
}
func (f failingCacheRepo) DeleteByPattern(context.Context, string) error { return f.err }

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(&memCacheRepo{}, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "jobs:list:a", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "jobs:list:a", []string{"go"}, 0))
	hit, err = svc.Get(ctx, "jobs:list:a", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"go"}, out)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabledIsPermanentMiss(t *testing.T) {
	repo := &memCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	assert.Empty(t, repo.store)
	hit, err := svc.Get(ctx, "k", new(string))
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Invalidate(ctx, "jobs:list:*"))
	assert.Empty(t, repo.invalidated)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServicePropagatesBackendErrors(t *testing.T) {
	boom := errors.New("redis down")
	svc := NewCacheService(failingCacheRepo{err: boom}, nil, time.Minute, nil, true)
	ctx := context.Background()

	hit, err := svc.Get(ctx, "k", new(string))
	assert.False(t, hit)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.Set(ctx, "k", "v", 0), boom)
	assert.ErrorIs(t, svc.Invalidate(ctx, "k*"), boom)
}

func TestCacheServiceFallsBackToDefaultTTL(t *testing.T) {
	svc := NewCacheService(&memCacheRepo{}, nil, 0, nil, true)
	assert.Equal(t, defaultJobListTTL, svc.defaultTTL)

	svc = NewCacheService(&memCacheRepo{}, nil, 30*time.Second, nil, true)
	assert.Equal(t, 30*time.Second, svc.defaultTTL)
}

func TestCacheServiceBackendFailureCountsAsMiss(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(failingCacheRepo{err: errors.New("redis down")}, metrics, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "jobs:list:a", new(string))
	require.Error(t, err)
	assert.False(t, hit)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheMisses)
	assert.Zero(t, metrics.Snapshot().CacheHits)
}
