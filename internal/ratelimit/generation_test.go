package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dreamforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	limiter, err := NewGenerationLimiter(config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	ctx := context.Background()
	res, err := limiter.AllowAccount(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	token, ok, err := limiter.TryLockAccount(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, limiter.ReleaseAccount(ctx, "acct", token))
}

func TestNewGenerationLimiterValidatesConfig(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewGenerationLimiter(config.Config{RateLimit: config.RateLimitConfig{GenerationRate: 0, GenerationBurst: 1, GenerationLockTTL: time.Second}}, client)
	assert.Error(t, err)

	_, err = NewGenerationLimiter(config.Config{RateLimit: config.RateLimitConfig{GenerationRate: 1, GenerationBurst: 1}}, client)
	assert.Error(t, err)

	limiter, err := NewGenerationLimiter(config.Config{RateLimit: config.RateLimitConfig{GenerationRate: 0.5, GenerationBurst: 2, GenerationLockTTL: time.Minute}}, client)
	require.NoError(t, err)
	assert.True(t, limiter.Enabled())
}

func TestGenerationLockOutlivesRequest(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{GenerationRate: 1, GenerationBurst: 1, GenerationLockTTL: time.Minute}}
	cfg.Generation.Timeout = 120 * time.Second
	cfg.Storage.Timeout = 30 * time.Second

	limiter, err := NewGenerationLimiter(cfg, client)
	require.NoError(t, err)
	assert.Equal(t, 180*time.Second, limiter.lockTTL)

	cfg.RateLimit.GenerationLockTTL = 10 * time.Minute
	limiter, err = NewGenerationLimiter(cfg, client)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, limiter.lockTTL)
}

func TestLockerRejectsBadInput(t *testing.T) {
	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, nilLocker.Release(context.Background(), "k", "t"))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)

	_, _, err = locker.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrLockKeyEmpty)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrLockTTLInvalid)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 3))
	assert.Equal(t, 30*time.Second, defaultBucketTTL(0.2, 3))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
}

func TestTokenBucketValidatesBeforeCallingRedis(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrBucketNotConfigured)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	bucket := NewTokenBucket(client)

	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrBucketKeyEmpty)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrBucketInvalid)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.ErrorIs(t, err, ErrBucketInvalid)
}
