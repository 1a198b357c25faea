package middleware

import (
	"context"
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

	"github.com/alanyoungcy/predictplugin/internal/crypto"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Write(body)
})

func TestAuth(t *testing.T) {
	h := Auth("secret-key", "/api/health")(ok)

	cases := []struct {
		name   string
		path   string
		header [2]string
		want   int
	}{
		{"open path", "/api/health", [2]string{}, http.StatusOK},
		{"missing", "/api/operations", [2]string{}, http.StatusUnauthorized},
		{"bearer", "/api/operations", [2]string{"Authorization", "Bearer secret-key"}, http.StatusOK},
		{"api key header", "/api/operations", [2]string{"X-API-Key", "secret-key"}, http.StatusOK},
		{"wrong", "/api/operations", [2]string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header[0] != "" {
				req.Header.Set(tc.header[0], tc.header[1])
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	Auth("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "empty key disables auth")
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingAssignsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	Logging(quietLogger())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec = httptest.NewRecorder()
	Logging(quietLogger())(ok).ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
}

type countingLimiter struct {
	keys  []string
	allow int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	return len(l.keys) <= l.allow, nil
}

func (l *countingLimiter) Wait(context.Context, string) error { return nil }

func TestRateLimit(t *testing.T) {
	lim := &countingLimiter{allow: 1}
	h := RateLimit(lim, 1, 30*time.Second, quietLogger())(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "api:ip:10.0.0.9", lim.keys[0])

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "abcdefghijkl")
	lim.allow = 10
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "api:key:abcdefgh", lim.keys[len(lim.keys)-1])
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(&countingLimiter{err: errors.New("redis down")}, 1, time.Second, quietLogger())(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignature(t *testing.T) {
	auth := crypto.NewWebhookAuth("hook-secret", 0)
	h := Signature(auth)(ok)
	body := `{"text":"buy yes"}`

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	for k, v := range auth.Headers(http.MethodPost, "/api/messages", body) {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String(), "body is restored for the next handler")

	req = httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"text":"sell"}`))
	for k, v := range auth.Headers(http.MethodPost, "/api/messages", body) {
		req.Header.Set(k, v)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignatureExpired(t *testing.T) {
	auth := crypto.NewWebhookAuth("hook-secret", time.Minute)
	body := `{}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	for k, v := range auth.HeadersAt(http.MethodPost, "/api/messages", body, time.Now().Add(-time.Hour).Unix()) {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	Signature(auth)(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestSignatureDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	Signature(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x")))
	assert.Equal(t, http.StatusOK, rec.Code)
}
