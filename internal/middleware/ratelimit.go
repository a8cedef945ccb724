package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-churiwal/api-manager/internal/config"
	"github.com/aman-churiwal/api-manager/internal/ratelimit"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Limits each client to cfg.RequestsPerMinute. Clients are API keys when one
// authenticated the request, client IPs otherwise. Without redis the
// middleware is a no-op.
func RateLimit(redis *storage.RedisClient, cfg config.RateLimitConfig) gin.HandlerFunc {
	if redis == nil || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := ratelimit.NewLimiter(redis, cfg.Algorithm, cfg.RequestsPerMinute, time.Minute)

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if apiKey, ok := APIKeyFrom(c); ok {
			key = "key:" + strconv.FormatUint(uint64(apiKey.ID), 10)
		}

		ctx := c.Request.Context()
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			log.WithError(err).Warn("rate limit check failed")
			c.Next()
			return
		}

		remaining, _ := limiter.Remaining(ctx, key)
		resetTime, _ := limiter.Reset(ctx, key)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))

		if !allowed {
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"limit":       limiter.Limit(),
				"retry_after": resetTime.Unix(),
			})
			return
		}

		c.Next()
	}
}
