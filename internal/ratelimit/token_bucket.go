package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aman-churiwal/api-manager/internal/storage"
	"github.com/redis/go-redis/v9"
)

// TokenBucketLimiter holds up to limit tokens per key and refills the whole
// bucket evenly over one window, so short bursts up to limit are admitted.
type TokenBucketLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
	now    func() time.Time
}

type bucket struct {
	Tokens    float64   `json:"tokens"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewTokenBucket(redis *storage.RedisClient, limit int, window time.Duration) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (t *TokenBucketLimiter) key(key string) string {
	return fmt.Sprintf("ratelimit:bucket:%s", key)
}

// tokens per second
func (t *TokenBucketLimiter) rate() float64 {
	return float64(t.limit) / t.window.Seconds()
}

// Loads the bucket for key and tops it up to now
func (t *TokenBucketLimiter) load(ctx context.Context, key string) (bucket, error) {
	now := t.now()
	full := bucket{Tokens: float64(t.limit), UpdatedAt: now}

	raw, err := t.redis.Get(ctx, t.key(key))
	if errors.Is(err, redis.Nil) {
		return full, nil
	}
	if err != nil {
		return bucket{}, err
	}

	var b bucket
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return full, nil
	}

	elapsed := now.Sub(b.UpdatedAt).Seconds()
	if elapsed > 0 {
		b.Tokens = math.Min(b.Tokens+elapsed*t.rate(), float64(t.limit))
	}
	b.UpdatedAt = now
	return b, nil
}

func (t *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	b, err := t.load(ctx, key)
	if err != nil {
		return false, err
	}

	allowed := b.Tokens >= 1
	if allowed {
		b.Tokens--
	}

	encoded, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	if err := t.redis.Set(ctx, t.key(key), encoded, t.window); err != nil {
		return false, err
	}

	return allowed, nil
}

func (t *TokenBucketLimiter) Remaining(ctx context.Context, key string) (int, error) {
	b, err := t.load(ctx, key)
	if err != nil {
		return 0, err
	}
	return int(b.Tokens), nil
}

func (t *TokenBucketLimiter) Limit() int {
	return t.limit
}

func (t *TokenBucketLimiter) Window() time.Duration {
	return t.window
}

// When the next token becomes available
func (t *TokenBucketLimiter) Reset(ctx context.Context, key string) (time.Time, error) {
	b, err := t.load(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if b.Tokens >= 1 {
		return b.UpdatedAt, nil
	}

	wait := (1 - b.Tokens) / t.rate()
	return b.UpdatedAt.Add(time.Duration(wait * float64(time.Second))), nil
}
