package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-churiwal/api-manager/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindowLimiter keeps one sorted-set member per event, scored by its
// timestamp, and trims members older than the window on every check.
type SlidingWindowLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
}

func NewSlidingWindowLimiter(redis *storage.RedisClient, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
	}
}

func (s *SlidingWindowLimiter) key(key string) string {
	return fmt.Sprintf("ratelimit:sliding:%s", key)
}

func (s *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := s.key(key)
	now := time.Now()
	windowStart := now.Add(-s.window)

	pipe := s.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if countCmd.Val() >= int64(s.limit) {
		return false, nil
	}

	// members must be unique even for events in the same nanosecond
	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())
	if err := s.redis.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member}); err != nil {
		return false, err
	}
	if err := s.redis.Expire(ctx, redisKey, s.window); err != nil {
		return false, err
	}

	return true, nil
}

func (s *SlidingWindowLimiter) Remaining(ctx context.Context, key string) (int, error) {
	now := time.Now()
	windowStart := now.Add(-s.window)

	count, err := s.redis.ZCount(ctx, s.key(key), fmt.Sprintf("%d", windowStart.UnixNano()), fmt.Sprintf("%d", now.UnixNano()))
	if err != nil {
		return 0, err
	}

	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *SlidingWindowLimiter) Limit() int {
	return s.limit
}

func (s *SlidingWindowLimiter) Window() time.Duration {
	return s.window
}

// When the oldest event in the window expires
func (s *SlidingWindowLimiter) Reset(ctx context.Context, key string) (time.Time, error) {
	oldest, err := s.redis.ZRange(ctx, s.key(key), 0, 0)
	if err != nil || len(oldest) == 0 {
		return time.Now(), nil
	}

	var oldestNano int64
	if _, err := fmt.Sscanf(oldest[0], "%d:", &oldestNano); err != nil {
		return time.Now(), nil
	}

	return time.Unix(0, oldestNano).Add(s.window), nil
}
