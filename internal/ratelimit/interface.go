package ratelimit

import (
	"context"
	"time"
)

// Limiter counts events per key inside a time window
type Limiter interface {
	// Records one event for key and reports whether it fits in the window
	Allow(ctx context.Context, key string) (bool, error)

	Remaining(ctx context.Context, key string) (int, error)

	Limit() int

	Window() time.Duration

	// When the window for key next frees capacity
	Reset(ctx context.Context, key string) (time.Time, error)
}
