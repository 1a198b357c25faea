package handler

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/actions"
	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakePlugin struct {
	got     plugin.Message
	handled bool
	replies []plugin.Reply
	err     error
}

func (f *fakePlugin) Handle(ctx context.Context, msg plugin.Message, cb plugin.Callback) (bool, error) {
	f.got = msg
	for _, r := range f.replies {
		if err := cb(ctx, r); err != nil {
			return f.handled, err
		}
	}
	return f.handled, f.err
}

func TestMessagePost(t *testing.T) {
	p := &fakePlugin{handled: true, replies: []plugin.Reply{{Text: "Bought YES", Action: actions.BuyPosition}}}
	h := NewMessageHandler(p, quietLogger())

	body := `{"id":"m-1","userId":"u-1","text":"buy yes","params":{"amount":100}}`
	rec := httptest.NewRecorder()
	h.Post(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Handled)
	assert.Equal(t, "m-1", out.MessageID)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, "Bought YES", out.Replies[0].Text)

	assert.Equal(t, "u-1", p.got.UserID)
	assert.Equal(t, json.Number("100"), p.got.Params["amount"])
}

func TestMessagePostRejectsBadInput(t *testing.T) {
	h := NewMessageHandler(&fakePlugin{}, quietLogger())

	for name, body := range map[string]string{
		"malformed": `{"text":`,
		"empty":     `{"id":"m-1","text":"  "}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Post(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMessagePostDuplicate(t *testing.T) {
	h := NewMessageHandler(&fakePlugin{handled: false}, quietLogger())
	rec := httptest.NewRecorder()
	h.Post(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"id":"m-1","text":"hi"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMessagePostHelpIsOK(t *testing.T) {
	h := NewMessageHandler(&fakePlugin{replies: []plugin.Reply{{Text: "I can help with"}}}, quietLogger())
	rec := httptest.NewRecorder()
	h.Post(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"text":"hello"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"handled":false`)
}

func TestMessagePostPluginError(t *testing.T) {
	h := NewMessageHandler(&fakePlugin{err: errors.New("redis down")}, quietLogger())
	rec := httptest.NewRecorder()
	h.Post(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}

type opSource struct {
	cat  *catalog.Catalog
	caps catalog.Capabilities
}

func (o opSource) Catalog() *catalog.Catalog          { return o.cat }
func (o opSource) Capabilities() catalog.Capabilities { return o.caps }

func TestOperationList(t *testing.T) {
	cat, err := actions.New()
	require.NoError(t, err)
	h := NewOperationHandler(opSource{cat: cat, caps: catalog.Capabilities{catalog.CapChain: true}})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Operations []operationView `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Operations, len(cat.List()))

	byID := map[string]operationView{}
	for _, op := range out.Operations {
		byID[op.ID] = op
	}
	assert.False(t, byID[actions.CreateMarket].Eligible, "writes need a signer")
	assert.True(t, byID[actions.GetPrice].Eligible)
	assert.Equal(t, "object", byID[actions.BuyPosition].Schema["type"])
	assert.Equal(t, cat.List()[0].ID, out.Operations[0].ID)
}

type fakeExecutions struct {
	recs []domain.ExecutionRecord
	opts domain.ListOpts
}

func (f *fakeExecutions) Record(context.Context, domain.ExecutionRecord) error { return nil }

func (f *fakeExecutions) GetByMessageID(_ context.Context, id string) (domain.ExecutionRecord, error) {
	for _, r := range f.recs {
		if r.MessageID == id {
			return r, nil
		}
	}
	return domain.ExecutionRecord{}, domain.ErrNotFound
}

func (f *fakeExecutions) List(_ context.Context, opts domain.ListOpts) ([]domain.ExecutionRecord, error) {
	f.opts = opts
	return f.recs, nil
}

func TestExecutions(t *testing.T) {
	store := &fakeExecutions{recs: []domain.ExecutionRecord{{
		MessageID: "m-1",
		Operation: actions.BuyPosition,
		Success:   true,
		TxHashes:  []string{"0xabc"},
		States:    []string{"Idle", "Validating", "Executing", "Confirming", "Completed"},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	h := NewExecutionHandler(store, quietLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/executions", h.List)
	mux.HandleFunc("GET /api/executions/{id}", h.Get)

	t.Run("list with filters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/executions?limit=900&offset=5&operation=BUY_POSITION&since=2026-01-01T00:00:00Z", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 500, store.opts.Limit)
		assert.Equal(t, 5, store.opts.Offset)
		assert.Equal(t, actions.BuyPosition, store.opts.Operation)
		require.NotNil(t, store.opts.Since)
		assert.Nil(t, store.opts.Until)
		assert.Contains(t, rec.Body.String(), `"txHashes":["0xabc"]`)
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/executions/m-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var v executionView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
		assert.Equal(t, "2026-03-01T12:00:00Z", v.CreatedAt)
		assert.True(t, v.Success)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/executions/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type fakeAudit struct{ err error }

func (f fakeAudit) Log(context.Context, string, map[string]any) error { return nil }

func (f fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.AuditEntry{{ID: 7, Event: "position_bought", Detail: map[string]any{"market": "0x1"}}}, nil
}

func TestAuditList(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAuditHandler(fakeAudit{}, quietLogger()).List(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event":"position_bought"`)

	rec = httptest.NewRecorder()
	NewAuditHandler(fakeAudit{err: errors.New("boom")}, quietLogger()).List(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"redis": ok}, quietLogger()).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{
		"redis":    ok,
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	}, quietLogger()).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
