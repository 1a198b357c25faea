package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLockManager_Acquire(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	release, err := lm.Acquire(ctx, "msg:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("predictd:lock:msg:1"))

	_, err = lm.Acquire(ctx, "msg:1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	release()
	release()
	assert.False(t, mr.Exists("predictd:lock:msg:1"))

	_, err = lm.Acquire(ctx, "msg:1", time.Minute)
	require.NoError(t, err)
}

func TestLockManager_Expires(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	_, err := lm.Acquire(ctx, "msg:2", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = lm.Acquire(ctx, "msg:2", time.Second)
	require.NoError(t, err)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c, 2, time.Minute)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "user:2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clock = clock.Add(61 * time.Second)
	ok, err = rl.Allow(ctx, "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c, 1, time.Hour)

	require.NoError(t, rl.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx, "k"))
}

func TestSignalBus_PublishSubscribe(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, domain.ChannelReply)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, domain.ChannelReply, []byte(`{"text":"hi"}`)))

	select {
	case got := <-ch:
		assert.JSONEq(t, `{"text":"hi"}`, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	for range ch {
	}
}

func TestSignalBus_Stream(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx := context.Background()

	msgs, err := bus.StreamRead(ctx, domain.StreamExecutions, "0", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, bus.StreamAppend(ctx, domain.StreamExecutions, []byte("a")))
	require.NoError(t, bus.StreamAppend(ctx, domain.StreamExecutions, []byte("b")))

	msgs, err = bus.StreamRead(ctx, domain.StreamExecutions, "0", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", string(msgs[0].Payload))

	rest, err := bus.StreamRead(ctx, domain.StreamExecutions, msgs[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b", string(rest[0].Payload))
}
