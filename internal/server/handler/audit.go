package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	store  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(store domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logHandler(logger, "audit")}
}

// List returns audit entries, newest first.
// GET /api/audit?limit=&offset=&since=&until=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":        e.ID,
			"event":     e.Event,
			"detail":    e.Detail,
			"createdAt": e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
