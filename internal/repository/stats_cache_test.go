package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
)

func TestRedisStatsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := repository.NewRedisStatsCache(client)
	ctx := context.Background()

	_, ok, err := cache.GetDashboard(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	due := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	stats := &domain.DashboardSnapshot{TotalMovies: 3, TotalUsers: 2, ActiveDueDates: []time.Time{due}}
	require.NoError(t, cache.SetDashboard(ctx, stats, time.Minute))

	got, ok, err := cache.GetDashboard(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.TotalMovies)
	require.Len(t, got.ActiveDueDates, 1)
	assert.True(t, due.Equal(got.ActiveDueDates[0]))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.GetDashboard(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire with its ttl")

	require.NoError(t, cache.SetDashboard(ctx, stats, time.Minute))
	require.NoError(t, cache.Invalidate(ctx))
	_, ok, _ = cache.GetDashboard(ctx)
	assert.False(t, ok)
}

func TestRedisStatsCache_UndecodableValueIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("movierental:dashboard", "garbage"))

	_, ok, err := repository.NewRedisStatsCache(client).GetDashboard(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStatsCache_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, _, err := repository.NewRedisStatsCache(client).GetDashboard(context.Background())
	assert.Error(t, err)
}
