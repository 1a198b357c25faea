package domain

import (
	"context"
	"time"
)

// Market state is never cached; these interfaces cover coordination only.

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// Channel names on the signal bus.
const (
	ChannelReply     = "ch:reply"
	StreamExecutions = "stream:executions"
)

// ReplyEvent is published on ChannelReply for every delivered reply.
type ReplyEvent struct {
	MessageID string         `json:"messageId"`
	UserID    string         `json:"userId,omitempty"`
	RoomID    string         `json:"roomId,omitempty"`
	Operation string         `json:"operation"`
	Success   bool           `json:"success"`
	Text      string         `json:"text"`
	TxHash    string         `json:"txHash,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}
