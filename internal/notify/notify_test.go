package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name  string
	err   error
	calls []string
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	f.calls = append(f.calls, title+"|"+message)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{" market_created ", ""}, discard())

	require.NoError(t, n.Notify(context.Background(), "position_bought", "t", "m"))
	assert.Empty(t, s.calls)

	require.NoError(t, n.Notify(context.Background(), "market_created", "t", "m"))
	assert.Equal(t, []string{"t|m"}, s.calls)
}

func TestNotifier_AllEventsWhenUnfiltered(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, nil, discard())
	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, s.calls, 1)
	assert.True(t, n.Enabled())
}

func TestNotifier_OneFailureDoesNotStopOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), "e", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.calls, 1)
}

func TestTelegramSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.baseURL = srv.URL
	require.NoError(t, s.Send(context.Background(), "BUY_POSITION", "Bought YES <100>"))

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<b>BUY_POSITION</b>\nBought YES &lt;100&gt;", got["text"])
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestDiscordSender_Truncates(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordSender(srv.URL).Send(context.Background(), "t", strings.Repeat("x", 3000)))
	assert.Equal(t, discordLimit, len([]rune(got["content"])))
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.Wait() }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTT struct {
	topic   string
	qos     byte
	payload []byte
	err     error
	hold    bool
	closed  bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, _ bool, payload any) mqtt.Token {
	f.topic, f.qos, f.payload = topic, qos, payload.([]byte)
	tok := &fakeToken{done: make(chan struct{}), err: f.err}
	if !f.hold {
		close(tok.done)
	}
	return tok
}

func (f *fakeMQTT) Disconnect(uint) { f.closed = true }

func TestMQTTSender(t *testing.T) {
	client := &fakeMQTT{}
	s := newMQTTSender(client, "predictd/events")
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, s.Send(context.Background(), "CREATE_MARKET", "Created market"))
	assert.Equal(t, "predictd/events", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.JSONEq(t,
		`{"title":"CREATE_MARKET","message":"Created market","sentAt":"2026-03-01T12:00:00Z"}`,
		string(client.payload))

	s.Close()
	assert.True(t, client.closed)
}

func TestMQTTSender_Errors(t *testing.T) {
	client := &fakeMQTT{err: errors.New("not connected")}
	err := newMQTTSender(client, "t").Send(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	held := &fakeMQTT{hold: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, newMQTTSender(held, "t").Send(ctx, "a", "b"), context.Canceled)
}

func TestNotifier_ClosesSenders(t *testing.T) {
	client := &fakeMQTT{}
	n := NewNotifier([]Sender{newMQTTSender(client, "t"), &fakeSender{name: "x"}}, nil, discard())
	n.Close()
	assert.True(t, client.closed)
}
