package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dreamforge/internal/config"
)

const (
	keyGenerationAccount = "generation:account:%s"
	keyGenerationLock    = "generation:lock:%s"

	generationLockMargin = 30 * time.Second
)

// GenerationLimiter throttles dream generation per account. A nil limiter
// allows everything.
type GenerationLimiter struct {
	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewGenerationLimiter(cfg config.Config, client *redis.Client) (*GenerationLimiter, error) {
	if client == nil {
		return nil, nil
	}
	limitCfg := cfg.RateLimit
	if limitCfg.GenerationRate <= 0 || limitCfg.GenerationBurst <= 0 {
		return nil, errors.New("generation rate limit must be positive")
	}
	if limitCfg.GenerationLockTTL <= 0 {
		return nil, errors.New("generation lock ttl must be positive")
	}

	return &GenerationLimiter{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.GenerationRate,
		burst:   limitCfg.GenerationBurst,
		lockTTL: max(limitCfg.GenerationLockTTL, minGenerationLockTTL(cfg)),
	}, nil
}

// minGenerationLockTTL covers one generation request end to end: the shared
// provider deadline, the storage copy and a margin for the database writes.
func minGenerationLockTTL(cfg config.Config) time.Duration {
	return cfg.Generation.Timeout + cfg.Storage.Timeout + generationLockMargin
}

func (l *GenerationLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *GenerationLimiter) AllowAccount(ctx context.Context, accountID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGenerationAccount, strings.TrimSpace(accountID)), l.rate, l.burst)
}

// TryLockAccount keeps a single generation in flight per account so two
// concurrent requests cannot both pass the free-tier balance check.
func (l *GenerationLimiter) TryLockAccount(ctx context.Context, accountID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyGenerationLock, strings.TrimSpace(accountID)), l.lockTTL)
}

func (l *GenerationLimiter) ReleaseAccount(ctx context.Context, accountID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyGenerationLock, strings.TrimSpace(accountID)), token)
}
