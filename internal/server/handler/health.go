package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Pinger checks one dependency.
type Pinger func(ctx context.Context) error

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. Each check is run on every
// request; any failure turns the response into a 503.
func NewHealthHandler(checks map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		now:     time.Now,
		logger:  logHandler(logger, "health"),
	}
}

// HealthCheck reports liveness plus the state of each dependency.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "dependency unhealthy",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  h.now().UTC().Format(time.RFC3339),
	})
}
