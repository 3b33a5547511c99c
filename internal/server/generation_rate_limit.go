package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dreamforge/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rateLimitReasonAccountRate        = "account-rate"
	rateLimitReasonAccountConcurrency = "account-concurrency"
)

// GenerationRateLimit throttles POST /api/dreams per account and keeps one
// generation in flight per account. It must run after BearerAuth.
func (s *Server) GenerationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		account, ok := accountFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		res, err := s.limiter.AllowAccount(ctx, account.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("generation rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			s.denyRateLimit(c, endpoint, rateLimitReasonAccountRate, res.RetryAfter)
			return
		}

		token, locked, err := s.limiter.TryLockAccount(ctx, account.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("generation concurrency lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !locked {
			s.denyRateLimit(c, endpoint, rateLimitReasonAccountConcurrency, time.Second)
			return
		}
		defer func() {
			if err := s.limiter.ReleaseAccount(ctx, account.ID, token); err != nil {
				logger.FromContext(ctx).Warn("generation concurrency unlock failed", zap.Error(err))
			}
		}()

		c.Next()
	}
}

func (s *Server) denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("generation rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint)

	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
