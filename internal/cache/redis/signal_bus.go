package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// streamMaxLen caps each stream through XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// SignalBus fans replies out over Pub/Sub and keeps a trimmed stream of them
// so late subscribers can catch up.
type SignalBus struct {
	c      *Client
	buffer int
}

func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{c: c, buffer: 128}
}

func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.c.rdb.Publish(ctx, sb.c.key("ch", channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published on channel. It is closed
// once ctx ends.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ps := sb.c.rdb.Subscribe(ctx, sb.c.key("ch", channel))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, sb.buffer)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: sb.c.key("stream", stream),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: append %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries after lastID ("0" for the start).
// An empty stream is not an error.
func (sb *SignalBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	res, err := sb.c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{sb.c.key("stream", stream), lastID},
		Count:   int64(count),
		Block:   -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: read %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range res {
		for _, m := range s.Messages {
			switch v := m.Values["payload"].(type) {
			case string:
				out = append(out, domain.StreamMessage{ID: m.ID, Payload: []byte(v)})
			case []byte:
				out = append(out, domain.StreamMessage{ID: m.ID, Payload: v})
			}
		}
	}
	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
