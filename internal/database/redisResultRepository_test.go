package database

import (
	"context"
	"testing"
	"time"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisResultRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisResultRepository(client, 24*time.Hour)
	ctx := context.Background()
	result := sampleResult()

	require.NoError(t, repo.Save(ctx, result))

	key := "detection:result:" + result.ProcessID
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 24*time.Hour, mr.TTL(key))

	got, err := repo.FindByID(ctx, result.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, result, got)
}

func TestRedisResultRepositoryExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisResultRepository(client, time.Minute)
	ctx := context.Background()
	result := sampleResult()
	require.NoError(t, repo.Save(ctx, result))

	mr.FastForward(time.Minute)

	_, err := repo.FindByID(ctx, result.ProcessID)
	assert.ErrorIs(t, err, entity.ErrResultNotFound)
}

func TestRedisResultRepositoryErrors(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisResultRepository(client, time.Minute)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "unknown")
	assert.ErrorIs(t, err, entity.ErrResultNotFound)

	err = repo.Save(ctx, &entity.DetectionResult{Success: true})
	assert.ErrorContains(t, err, "empty process id")
	assert.Empty(t, mr.Keys())

	require.NoError(t, mr.Set("detection:result:broken", "{not json"))
	_, err = repo.FindByID(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrResultNotFound)
}
