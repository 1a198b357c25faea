package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
)

type echoHandler struct {
	mu  sync.Mutex
	got []plugin.Message
}

func (e *echoHandler) Handle(ctx context.Context, msg plugin.Message, cb plugin.Callback) (bool, error) {
	e.mu.Lock()
	e.got = append(e.got, msg)
	e.mu.Unlock()
	return true, cb(ctx, plugin.Reply{Text: "echo: " + msg.Text, Action: "GET_PRICE"})
}

type fakeBus struct {
	ch     chan []byte
	stream []domain.StreamMessage
}

func (b *fakeBus) Publish(context.Context, string, []byte) error { return nil }

func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	if channel != domain.ChannelReply {
		return nil, io.EOF
	}
	return b.ch, nil
}

func (b *fakeBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *fakeBus) StreamRead(_ context.Context, _ string, lastID string, _ int) ([]domain.StreamMessage, error) {
	var out []domain.StreamMessage
	for _, m := range b.stream {
		if m.ID > lastID {
			out = append(out, m)
		}
	}
	return out, nil
}

func startHub(t *testing.T, h MessageHandler, bus domain.SignalBus) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(h, bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "server"})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestMessageRoundTrip(t *testing.T) {
	h := &echoHandler{}
	srv, _ := startHub(t, h, nil)
	conn := dial(t, srv, "?user=alice")

	status := readFrame(t, conn)
	assert.Equal(t, FrameStatus, status.Type)
	assert.Equal(t, "server", status.Payload["mode"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "message", "id": "m-1", "text": "price of 0xabc"}))
	reply := readFrame(t, conn)
	assert.Equal(t, FrameReply, reply.Type)
	assert.Equal(t, "m-1", reply.MessageID)
	require.NotNil(t, reply.Reply)
	assert.Equal(t, "echo: price of 0xabc", reply.Reply.Text)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.got, 1)
	assert.Equal(t, "alice", h.got[0].UserID)
}

func TestRejectsBadFrames(t *testing.T) {
	srv, _ := startHub(t, &echoHandler{}, nil)
	conn := dial(t, srv, "")
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, FrameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "message", "id": "m-2"}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "m-2", f.MessageID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
	assert.Contains(t, readFrame(t, conn).Error, "bogus")
}

func TestRelaysEventsByRoom(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 4)}
	srv, _ := startHub(t, &echoHandler{}, bus)

	lobby := dial(t, srv, "?room=lobby")
	readFrame(t, lobby)

	other, _ := json.Marshal(domain.ReplyEvent{MessageID: "m-9", RoomID: "elsewhere", Text: "skip"})
	mine, _ := json.Marshal(domain.ReplyEvent{MessageID: "m-10", RoomID: "lobby", Operation: "BUY_POSITION", Success: true, Text: "Bought YES"})
	bus.ch <- other
	bus.ch <- mine

	f := readFrame(t, lobby)
	assert.Equal(t, FrameEvent, f.Type)
	require.NotNil(t, f.Event)
	assert.Equal(t, "m-10", f.Event.MessageID)
	assert.Equal(t, "Bought YES", f.Event.Text)
}

func TestReplayAfter(t *testing.T) {
	ev1, _ := json.Marshal(domain.ReplyEvent{MessageID: "m-1", Text: "first"})
	ev2, _ := json.Marshal(domain.ReplyEvent{MessageID: "m-2", Text: "second"})
	bus := &fakeBus{
		ch: make(chan []byte),
		stream: []domain.StreamMessage{
			{ID: "1-0", Payload: ev1},
			{ID: "2-0", Payload: ev2},
		},
	}
	srv, _ := startHub(t, &echoHandler{}, bus)
	conn := dial(t, srv, "?after=1-0")

	assert.Equal(t, FrameStatus, readFrame(t, conn).Type)
	f := readFrame(t, conn)
	assert.Equal(t, FrameEvent, f.Type)
	assert.Equal(t, "2-0", f.StreamID)
	assert.Equal(t, "m-2", f.MessageID)
}
