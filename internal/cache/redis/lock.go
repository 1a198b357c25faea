package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// releaseLua deletes the lock only while it still holds the caller's token.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager hands out SET NX locks with a TTL. Message claims use it
// without ever releasing, so a claim lasts exactly the TTL.
type LockManager struct {
	c       *Client
	release *redis.Script
}

func NewLockManager(c *Client) *LockManager {
	return &LockManager{c: c, release: redis.NewScript(releaseLua)}
}

// Acquire takes the lock for key or returns domain.ErrLockHeld. The returned
// release func may be called any number of times.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	k := lm.c.key("lock", key)
	token := uuid.NewString()

	ok, err := lm.c.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lm.release.Run(ctx, lm.c.rdb, []string{k}, token).Err()
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
