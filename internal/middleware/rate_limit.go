// internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"listing-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter counts requests per key in fixed Redis windows. Without a
// Redis client it allows everything.
type RateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRateLimiter(client *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, logger: logger}
}

// Allow increments the counter of key and reports whether it is still
// within max for the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, max int64, window time.Duration) (bool, int64, error) {
	if r.client == nil {
		return true, max, nil
	}
	key = fmt.Sprintf("ratelimit:%s", key)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiration on first request
	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= max, remaining, nil
}

// Limit rejects callers exceeding max requests per window on the route.
// The caller is the identity when its token signature was verified, else
// the client IP. Redis failures let the request through.
func (r *RateLimiter) Limit(name string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining, err := r.Allow(c.Request.Context(), name+":"+rateLimitCaller(c), max, window)
		if err != nil {
			r.logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !ok {
			response.Error(c, http.StatusTooManyRequests, "too many requests", nil)
			return
		}
		c.Next()
	}
}

func rateLimitCaller(c *gin.Context) string {
	if cred := GetCredential(c); cred.Authenticated() && cred.Verified {
		return "id:" + cred.IdentityID
	}
	return "ip:" + c.ClientIP()
}
