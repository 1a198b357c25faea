package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/alanyoungcy/predictplugin/internal/crypto"
)

// maxSignedBody bounds the body read for signature checks.
const maxSignedBody = 1 << 20

// Signature verifies the HMAC webhook headers over method, path and body.
// A nil verifier disables the check.
func Signature(auth *crypto.WebhookAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if auth == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable body")
				return
			}
			if len(body) > maxSignedBody {
				writeError(w, http.StatusRequestEntityTooLarge, "body too large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			err = auth.Verify(r.Method, r.URL.Path, string(body),
				r.Header.Get(crypto.HeaderTimestamp), r.Header.Get(crypto.HeaderSignature))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, crypto.ErrSignatureExpired):
				writeError(w, http.StatusUnauthorized, "signature expired")
			default:
				writeError(w, http.StatusUnauthorized, "invalid signature")
			}
		})
	}
}
