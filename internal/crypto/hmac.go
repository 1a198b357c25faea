package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Header names carried by signed webhook requests.
const (
	HeaderTimestamp = "X-Predictd-Timestamp"
	HeaderSignature = "X-Predictd-Signature"
)

var (
	ErrSignatureMissing = errors.New("crypto: webhook signature missing")
	ErrSignatureInvalid = errors.New("crypto: webhook signature invalid")
	ErrSignatureExpired = errors.New("crypto: webhook timestamp outside tolerance")
)

// WebhookAuth verifies HMAC-signed requests from the agent framework. The
// signature is HMAC-SHA256(secret, timestamp+method+path+body) encoded as
// base64.
type WebhookAuth struct {
	Secret    string
	Tolerance time.Duration
	now       func() time.Time
}

// NewWebhookAuth creates a verifier that accepts timestamps within tolerance.
func NewWebhookAuth(secret string, tolerance time.Duration) *WebhookAuth {
	return &WebhookAuth{Secret: secret, Tolerance: tolerance, now: time.Now}
}

// Headers returns the signature headers for a request signed at the current time.
func (w *WebhookAuth) Headers(method, path, body string) map[string]string {
	return w.HeadersAt(method, path, body, w.now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (w *WebhookAuth) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	return map[string]string{
		HeaderTimestamp: ts,
		HeaderSignature: hmacSHA256Base64([]byte(w.Secret), ts+method+path+body),
	}
}

// Verify checks a signature produced by Headers.
func (w *WebhookAuth) Verify(method, path, body, timestamp, signature string) error {
	if timestamp == "" || signature == "" {
		return ErrSignatureMissing
	}
	unixTS, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrSignatureInvalid)
	}
	if w.Tolerance > 0 {
		skew := w.now().Sub(time.Unix(unixTS, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > w.Tolerance {
			return ErrSignatureExpired
		}
	}

	want := hmacSHA256Base64([]byte(w.Secret), timestamp+method+path+body)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// String returns a redacted representation suitable for logging.
func (w *WebhookAuth) String() string {
	s := "****"
	if len(w.Secret) > 4 {
		s = w.Secret[:4] + "****"
	}
	return fmt.Sprintf("WebhookAuth{secret=%s, tolerance=%s}", s, w.Tolerance)
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
