package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Guard admits each inbound message id at most once.
type Guard interface {
	// Claim returns domain.ErrDuplicateMessage when messageID is already
	// being handled or was handled recently.
	Claim(ctx context.Context, messageID string) error
}

// MemoryGuard is the single-process guard backed by Dedup.
type MemoryGuard struct {
	dedup *Dedup
}

// NewMemoryGuard remembers claimed ids for ttl.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{dedup: NewDedup(ttl)}
}

func (g *MemoryGuard) Claim(_ context.Context, messageID string) error {
	if g.dedup.IsDuplicate(messageID) {
		return domain.ErrDuplicateMessage
	}
	return nil
}

// Run periodically evicts expired ids until ctx is cancelled.
func (g *MemoryGuard) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.dedup.Cleanup()
		}
	}
}

// LockGuard claims message ids through a distributed lock so that replicas
// sharing one Redis never handle the same message twice. The lock is left to
// expire rather than released, which keeps redeliveries out for the TTL.
type LockGuard struct {
	locks  domain.LockManager
	ttl    time.Duration
	logger *slog.Logger
}

func NewLockGuard(locks domain.LockManager, ttl time.Duration, logger *slog.Logger) *LockGuard {
	return &LockGuard{
		locks:  locks,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "lock_guard")),
	}
}

func (g *LockGuard) Claim(ctx context.Context, messageID string) error {
	_, err := g.locks.Acquire(ctx, "msg:"+messageID, g.ttl)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLockHeld):
		return domain.ErrDuplicateMessage
	default:
		g.logger.Warn("message lock unavailable",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("executor: claim %s: %w", messageID, err)
	}
}
