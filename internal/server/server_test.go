package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/actions"
	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/crypto"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
	"github.com/alanyoungcy/predictplugin/internal/server/handler"
)

type stubPlugin struct{ cat *catalog.Catalog }

func (s stubPlugin) Handle(ctx context.Context, msg plugin.Message, cb plugin.Callback) (bool, error) {
	return true, cb(ctx, plugin.Reply{Text: "ok " + msg.Text})
}
func (s stubPlugin) Catalog() *catalog.Catalog          { return s.cat }
func (s stubPlugin) Capabilities() catalog.Capabilities { return catalog.Capabilities{} }

func newTestServer(t *testing.T, cfg Config, deps Deps) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat, err := actions.New()
	require.NoError(t, err)
	p := stubPlugin{cat: cat}

	srv := NewServer(cfg, Handlers{
		Health:     handler.NewHealthHandler(nil, logger),
		Messages:   handler.NewMessageHandler(p, logger),
		Operations: handler.NewOperationHandler(p),
	}, deps, logger)
	return srv.Handler()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	h := newTestServer(t, Config{APIKey: "k"}, Deps{})

	assert.Equal(t, http.StatusOK, do(h, httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(h, httptest.NewRequest(http.MethodGet, "/api/operations", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	req.Header.Set("X-API-Key", "k")
	rec := do(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), actions.CreateMarket)

	req = httptest.NewRequest(http.MethodGet, "/api/executions", nil)
	req.Header.Set("X-API-Key", "k")
	assert.Equal(t, http.StatusServiceUnavailable, do(h, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/operations", nil)
	req.Header.Set("X-API-Key", "k")
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, req).Code)
}

func TestMessagesRequireSignature(t *testing.T) {
	auth := crypto.NewWebhookAuth("hook", 0)
	h := newTestServer(t, Config{}, Deps{Webhook: auth})
	body := `{"id":"m-1","text":"hello"}`

	rec := do(h, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	for k, v := range auth.Headers(http.MethodPost, "/api/messages", body) {
		req.Header.Set(k, v)
	}
	rec = do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok hello")
}
