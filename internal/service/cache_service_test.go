package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeygonK/Health-Information-System/internal/repository"
)

type failingCacheRepo struct{ sets int }

func (f *failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (f *failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.sets++
	return errors.New("connection refused")
}

type payload struct {
	Value string `json:"value"`
}

func TestGetOrComputeHitAndMiss(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(repository.NewMemoryCacheRepository(nil), metrics, time.Minute, nil, true)
	ctx := context.Background()
	calls := 0

	compute := func(dest *payload) func(context.Context) error {
		return func(context.Context) error {
			calls++
			dest.Value = "fresh"
			return nil
		}
	}

	var first payload
	status, err := svc.GetOrCompute(ctx, "k", 0, false, &first, compute(&first))
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)

	var second payload
	status, err = svc.GetOrCompute(ctx, "k", 0, false, &second, compute(&second))
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Equal(t, "fresh", second.Value)
	assert.Equal(t, 1, calls)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues(string(CacheHit))))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))
}

func TestGetOrComputeBackendFailureDegrades(t *testing.T) {
	repo := &failingCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest payload
	status, err := svc.GetOrCompute(context.Background(), "k", 0, false, &dest, func(context.Context) error {
		dest.Value = "computed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.Equal(t, "computed", dest.Value)
	assert.Equal(t, 1, repo.sets)
}

func TestGetOrComputeErrorIsNotCached(t *testing.T) {
	repo := repository.NewMemoryCacheRepository(nil)
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	boom := errors.New("boom")

	var dest payload
	_, err := svc.GetOrCompute(context.Background(), "k", 0, false, &dest, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDisabledCacheAlwaysComputes(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	calls := 0
	var dest payload
	for i := 0; i < 2; i++ {
		status, err := svc.GetOrCompute(context.Background(), "k", 0, false, &dest, func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, CacheMiss, status)
	}
	assert.Equal(t, 2, calls)
}
