package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

const waitPollInterval = 50 * time.Millisecond

// RateLimiter is a sliding-window limiter shared by every replica. Each
// admitted request is a member of a sorted set scored by its arrival time.
type RateLimiter struct {
	c      *Client
	script *redis.Script
	// limit and window apply to Wait.
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter. limit and window are the defaults Wait
// enforces; Allow takes its own.
func NewRateLimiter(c *Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		c:      c,
		script: redis.NewScript(slidingWindowLua),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow admits and counts one request for key if fewer than limit were
// admitted in the trailing window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := rl.script.Run(ctx, rl.c.rdb,
		[]string{rl.c.key("ratelimit", key)},
		rl.now().UnixMicro(),
		window.Microseconds(),
		limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("redis: rate limit %s: unexpected reply of length %d", key, len(res))
	}
	return res[0] == 1, nil
}

// Wait blocks until key is admitted under the limiter's default limit.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		ok, err := rl.Allow(ctx, key, rl.limit, rl.window)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
