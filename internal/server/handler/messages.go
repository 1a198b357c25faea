package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/alanyoungcy/predictplugin/internal/plugin"
)

// MessagePlugin is the part of the plugin the message endpoint drives.
type MessagePlugin interface {
	Handle(ctx context.Context, msg plugin.Message, cb plugin.Callback) (bool, error)
}

// MessageHandler accepts chat messages over HTTP.
type MessageHandler struct {
	plugin MessagePlugin
	logger *slog.Logger
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(p MessagePlugin, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{plugin: p, logger: logHandler(logger, "messages")}
}

type messageResponse struct {
	MessageID string         `json:"messageId"`
	Handled   bool           `json:"handled"`
	Replies   []plugin.Reply `json:"replies"`
}

// Post runs one message through the plugin and returns every reply the
// callback received.
// POST /api/messages
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	var msg plugin.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(msg.Text) == "" && msg.Action == "" {
		writeError(w, http.StatusBadRequest, "text or action is required")
		return
	}

	var (
		mu      sync.Mutex
		replies = []plugin.Reply{}
	)
	cb := func(_ context.Context, reply plugin.Reply) error {
		mu.Lock()
		replies = append(replies, reply)
		mu.Unlock()
		return nil
	}

	handled, err := h.plugin.Handle(r.Context(), msg, cb)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "message handling failed",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "message handling failed")
		return
	}

	status := http.StatusOK
	if !handled && len(replies) == 0 {
		// Duplicate delivery; the first request owns the reply.
		status = http.StatusConflict
	}
	writeJSON(w, status, messageResponse{
		MessageID: msg.ID,
		Handled:   handled,
		Replies:   replies,
	})
}
