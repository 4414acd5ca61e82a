package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"trustlend-workers/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewCache(client)
}

func TestCache_TrustScoreRoundTrip(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	_, hit, err := cache.GetTrustScore(ctx, "user-123")
	assert.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, cache.SetTrustScore(ctx, "user-123", 812.5, time.Hour))

	score, hit, err := cache.GetTrustScore(ctx, "user-123")
	assert.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 812.5, score)

	// The key lives under the trust:score namespace with a TTL.
	assert.True(t, mr.Exists("trust:score:user-123"))
	assert.Equal(t, time.Hour, mr.TTL("trust:score:user-123"))
}

func TestCache_TrustScoreExpires(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, cache.SetTrustScore(ctx, "user-123", 640, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.GetTrustScore(ctx, "user-123")
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_InvalidateTrustScore(t *testing.T) {
	_, cache := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, cache.SetTrustScore(ctx, "user-123", 640, time.Hour))
	assert.NoError(t, cache.InvalidateTrustScore(ctx, "user-123"))

	_, hit, err := cache.GetTrustScore(ctx, "user-123")
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_CorruptTrustScoreIsAnError(t *testing.T) {
	mr, cache := setupTestRedis(t)

	mr.Set("trust:score:user-123", "not-a-number")

	_, hit, err := cache.GetTrustScore(context.Background(), "user-123")
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCache_LenderRoundTrip(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	_, hit, err := cache.GetLender(ctx, "lender-prime")
	assert.NoError(t, err)
	assert.False(t, hit)

	lender := models.SampleLenders()[0]
	assert.NoError(t, cache.SetLender(ctx, &lender, 5*time.Minute))

	cached, hit, err := cache.GetLender(ctx, "lender-prime")
	assert.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, &lender, cached)

	assert.True(t, mr.Exists("lender:details:lender-prime"))
}

func TestCache_PropagatesRedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client)
	ctx := context.Background()

	mock.ExpectGet("trust:score:user-123").SetErr(errors.New("connection refused"))
	_, hit, err := cache.GetTrustScore(ctx, "user-123")
	assert.Error(t, err)
	assert.False(t, hit)

	mock.ExpectSet("trust:score:user-123", "640", time.Hour).SetErr(errors.New("connection refused"))
	assert.Error(t, cache.SetTrustScore(ctx, "user-123", 640, time.Hour))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_CorruptLenderIsAnError(t *testing.T) {
	mr, cache := setupTestRedis(t)

	mr.Set("lender:details:lender-prime", "{corrupt")

	_, hit, err := cache.GetLender(context.Background(), "lender-prime")
	assert.Error(t, err)
	assert.False(t, hit)
}
