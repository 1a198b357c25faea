package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

const (
	contentJSON = "application/json"
	// multipartThreshold routes larger payloads through the upload manager.
	multipartThreshold = 8 << 20
)

// Archiver writes envelopes and receipts under a dated prefix:
//
//	<prefix>/envelopes/2026/03/01/<message_id>.json
//	<prefix>/receipts/2026/03/01/<message_id>/<tx_hash>.json
//
// An object already present is never overwritten.
type Archiver struct {
	w      domain.BlobWriter
	r      domain.BlobReader
	prefix string
	now    func() time.Time
}

// NewArchiver creates an Archiver. r may be nil, in which case every object
// is written unconditionally.
func NewArchiver(w domain.BlobWriter, r domain.BlobReader, prefix string) *Archiver {
	return &Archiver{w: w, r: r, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// ArchiveEnvelope stores env as JSON, followed by each of its receipts, and
// returns the envelope's object path.
func (a *Archiver) ArchiveEnvelope(ctx context.Context, env domain.ResponseEnvelope) (string, error) {
	if env.MessageID == "" {
		return "", fmt.Errorf("s3blob: archive envelope: empty message id")
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal envelope %s: %w", env.MessageID, err)
	}

	p := a.key("envelopes", a.day(env.EndedAt), env.MessageID+".json")
	if err := a.put(ctx, p, raw); err != nil {
		return "", err
	}
	for _, h := range env.TxHashes {
		if receipt, ok := env.Receipts[h]; ok {
			if _, err := a.archiveReceipt(ctx, a.day(env.EndedAt), env.MessageID, h, receipt); err != nil {
				return p, err
			}
		}
	}
	return p, nil
}

// ArchiveReceipt stores one raw receipt under today's date.
func (a *Archiver) ArchiveReceipt(ctx context.Context, messageID, txHash string, receipt []byte) (string, error) {
	return a.archiveReceipt(ctx, a.day(time.Time{}), messageID, txHash, receipt)
}

func (a *Archiver) archiveReceipt(ctx context.Context, day, messageID, txHash string, receipt []byte) (string, error) {
	p := a.key("receipts", day, messageID, strings.ToLower(txHash)+".json")
	return p, a.put(ctx, p, receipt)
}

func (a *Archiver) put(ctx context.Context, p string, data []byte) error {
	if a.r != nil {
		exists, err := a.r.Exists(ctx, p)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	if len(data) >= multipartThreshold {
		return a.w.PutMultipart(ctx, p, bytes.NewReader(data), minPartSize)
	}
	return a.w.Put(ctx, p, bytes.NewReader(data), contentJSON)
}

// day formats t, or the archiver's clock when t is zero, as YYYY/MM/DD in UTC.
func (a *Archiver) day(t time.Time) string {
	if t.IsZero() {
		t = a.now()
	}
	return t.UTC().Format("2006/01/02")
}

func (a *Archiver) key(parts ...string) string {
	if a.prefix != "" {
		parts = append([]string{a.prefix}, parts...)
	}
	return path.Join(parts...)
}

var _ domain.Archiver = (*Archiver)(nil)
