package ratelimit

import (
	"time"

	"github.com/aman-churiwal/api-manager/internal/storage"
)

const (
	AlgorithmFixedWindow   = "fixed_window"
	AlgorithmSlidingWindow = "sliding_window"
	AlgorithmTokenBucket   = "token_bucket"
)

// Unknown algorithms fall back to a fixed window
func NewLimiter(redis *storage.RedisClient, algorithm string, limit int, window time.Duration) Limiter {
	switch algorithm {
	case AlgorithmSlidingWindow:
		return NewSlidingWindowLimiter(redis, limit, window)
	case AlgorithmTokenBucket:
		return NewTokenBucket(redis, limit, window)
	default:
		return NewFixedWindow(redis, limit, window)
	}
}
