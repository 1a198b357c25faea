package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// ExecutionHandler serves the execution ledger.
type ExecutionHandler struct {
	store  domain.ExecutionStore
	logger *slog.Logger
}

// NewExecutionHandler creates an ExecutionHandler.
func NewExecutionHandler(store domain.ExecutionStore, logger *slog.Logger) *ExecutionHandler {
	return &ExecutionHandler{store: store, logger: logHandler(logger, "executions")}
}

type executionView struct {
	MessageID string                  `json:"messageId"`
	UserID    string                  `json:"userId,omitempty"`
	Operation string                  `json:"operation"`
	Success   bool                    `json:"success"`
	ErrorKind string                  `json:"errorKind,omitempty"`
	TxHashes  []string                `json:"txHashes,omitempty"`
	States    []string                `json:"states"`
	Data      map[string]any          `json:"data,omitempty"`
	Error     *domain.ErrorDescriptor `json:"error,omitempty"`
	CreatedAt string                  `json:"createdAt"`
}

func toExecutionView(rec domain.ExecutionRecord) executionView {
	return executionView{
		MessageID: rec.MessageID,
		UserID:    rec.UserID,
		Operation: rec.Operation,
		Success:   rec.Success,
		ErrorKind: rec.ErrorKind,
		TxHashes:  rec.TxHashes,
		States:    rec.States,
		Data:      rec.Data,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns ledger rows, newest first.
// GET /api/executions?limit=&offset=&operation=&since=&until=
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list executions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}
	out := make([]executionView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toExecutionView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": out})
}

// Get returns the ledger row for one message id.
// GET /api/executions/{id}
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	rec, err := h.store.GetByMessageID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "execution not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get execution failed",
			slog.String("message_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load execution")
		return
	}
	writeJSON(w, http.StatusOK, toExecutionView(rec))
}
