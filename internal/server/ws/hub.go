// Package ws serves the chat WebSocket. Clients send messages over the
// socket and receive their replies on it, and they can also follow the
// reply events other clients trigger.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 16 << 10

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256

	// replayLimit caps the events replayed on connect.
	replayLimit = 100

	// allRooms subscribes a client to every reply event.
	allRooms = "*"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MessageHandler runs chat messages.
type MessageHandler interface {
	Handle(ctx context.Context, msg plugin.Message, cb plugin.Callback) (bool, error)
}

// inbound is a client frame. Message frames carry the chat message fields
// inline: {"type":"message","id":"...","text":"..."}.
type inbound struct {
	Type string `json:"type"`
	plugin.Message
	Rooms []string `json:"rooms,omitempty"`
}

// Frame is every server-to-client frame.
type Frame struct {
	Type      string             `json:"type"`
	MessageID string             `json:"messageId,omitempty"`
	StreamID  string             `json:"streamId,omitempty"`
	Reply     *plugin.Reply      `json:"reply,omitempty"`
	Event     *domain.ReplyEvent `json:"event,omitempty"`
	Error     string             `json:"error,omitempty"`
	Payload   map[string]any     `json:"payload,omitempty"`
}

// Frame types.
const (
	FrameStatus = "status"
	FrameReply  = "reply"
	FrameEvent  = "event"
	FrameError  = "error"
)

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	close sync.Once
	user  string
	rooms map[string]bool
	mu    sync.RWMutex
}

// Config captures runtime metadata reported in the status frame.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// Hub tracks connected clients, runs their messages through the plugin and
// fans reply events from the signal bus out to subscribed clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan domain.ReplyEvent
	register   chan *client
	unregister chan *client
	handler    MessageHandler
	bus        domain.SignalBus
	mu         sync.RWMutex
	base       context.Context
	inflight   sync.WaitGroup
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// NewHub creates a hub. bus may be nil, in which case only direct replies
// are delivered.
func NewHub(handler MessageHandler, bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan domain.ReplyEvent, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		handler:    handler,
		bus:        bus,
		base:       context.Background(),
		logger:     logger.With(slog.String("component", "ws")),
		mode:       mode,
		startedAt:  startedAt,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, after the
// messages already being handled have finished.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.base = ctx
	h.mu.Unlock()

	if h.bus != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.shutdown()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.inflight.Wait()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.shutdown()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("total_clients", n))

		case ev := <-h.broadcast:
			data, err := json.Marshal(Frame{Type: FrameEvent, MessageID: ev.MessageID, Event: &ev})
			if err != nil {
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if c.follows(ev) {
					c.enqueue(data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribe forwards reply events from the signal bus into the hub.
func (h *Hub) subscribe(ctx context.Context) {
	msgs, err := h.bus.Subscribe(ctx, domain.ChannelReply)
	if err != nil {
		h.logger.Error("subscribe to reply channel failed", slog.String("error", err.Error()))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("reply channel subscription closed")
				return
			}
			var ev domain.ReplyEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				h.logger.Warn("malformed reply event", slog.String("error", err.Error()))
				continue
			}
			select {
			case h.broadcast <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleWS upgrades the request and registers the client. Query parameters:
// user sets the default user id for messages, room (repeatable) limits the
// followed rooms, after replays execution events newer than a stream id.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	q := r.URL.Query()
	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		done:  make(chan struct{}),
		user:  q.Get("user"),
		rooms: make(map[string]bool),
	}
	rooms := q["room"]
	if len(rooms) == 0 {
		rooms = []string{allRooms}
	}
	for _, room := range rooms {
		c.rooms[room] = true
	}

	h.register <- c
	c.sendStatus()
	if after := q.Get("after"); after != "" && h.bus != nil {
		h.replay(r.Context(), c, after)
	}

	go c.writePump()
	go c.readPump()
}

// replay sends stored execution events after lastID to one client.
func (h *Hub) replay(ctx context.Context, c *client, lastID string) {
	msgs, err := h.bus.StreamRead(ctx, domain.StreamExecutions, lastID, replayLimit)
	if err != nil {
		h.logger.Warn("replay failed", slog.String("error", err.Error()))
		return
	}
	for _, m := range msgs {
		var ev domain.ReplyEvent
		if err := json.Unmarshal(m.Payload, &ev); err != nil || !c.follows(ev) {
			continue
		}
		c.sendFrame(Frame{Type: FrameEvent, MessageID: ev.MessageID, StreamID: m.ID, Event: &ev})
	}
}

func (h *Hub) context() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.base
}

// handleMessage runs one chat message. It uses the hub's context so a
// dropped connection does not abandon a submitted transaction.
func (h *Hub) handleMessage(c *client, msg plugin.Message) {
	if msg.UserID == "" {
		msg.UserID = c.user
	}
	if h.context().Err() != nil {
		c.sendFrame(Frame{Type: FrameError, MessageID: msg.ID, Error: "server shutting down"})
		return
	}
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx := h.context()
		cb := func(_ context.Context, reply plugin.Reply) error {
			c.sendFrame(Frame{Type: FrameReply, MessageID: msg.ID, Reply: &reply})
			return nil
		}
		if _, err := h.handler.Handle(ctx, msg, cb); err != nil {
			h.logger.ErrorContext(ctx, "message handling failed",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
			c.sendFrame(Frame{Type: FrameError, MessageID: msg.ID, Error: "message handling failed"})
		}
	}()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error", slog.String("error", err.Error()))
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendFrame(Frame{Type: FrameError, Error: "invalid JSON frame"})
			continue
		}
		switch in.Type {
		case "message":
			if strings.TrimSpace(in.Text) == "" && in.Action == "" {
				c.sendFrame(Frame{Type: FrameError, MessageID: in.ID, Error: "text or action is required"})
				continue
			}
			c.hub.handleMessage(c, in.Message)
		case "subscribe":
			c.setRooms(in.Rooms, true)
		case "unsubscribe":
			c.setRooms(in.Rooms, false)
		default:
			c.sendFrame(Frame{Type: FrameError, Error: "unknown frame type " + in.Type})
		}
	}
}

func (c *client) setRooms(rooms []string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rooms {
		if on {
			c.rooms[r] = true
		} else {
			delete(c.rooms, r)
		}
	}
}

// follows reports whether ev belongs to a room the client follows.
func (c *client) follows(ev domain.ReplyEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[allRooms] || (ev.RoomID != "" && c.rooms[ev.RoomID])
}

func (c *client) sendStatus() {
	uptime := max(int64(time.Since(c.hub.startedAt).Seconds()), 0)
	c.sendFrame(Frame{
		Type: FrameStatus,
		Payload: map[string]any{
			"mode":           c.hub.mode,
			"uptime_seconds": uptime,
			"bus":            c.hub.bus != nil,
		},
	})
}

func (c *client) sendFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// enqueue never blocks; a full buffer drops the frame.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.hub.logger.Warn("dropping frame for slow client")
	}
}

func (c *client) shutdown() {
	c.close.Do(func() { close(c.done) })
}

// writePump writes queued frames as text messages and keeps the connection
// alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
