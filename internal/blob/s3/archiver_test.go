package s3blob

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

type memBlobs struct {
	objects   map[string][]byte
	multipart int
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: make(map[string][]byte)} }

func (m *memBlobs) Put(_ context.Context, p string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	m.objects[p] = b
	return err
}

func (m *memBlobs) PutMultipart(ctx context.Context, p string, data io.Reader, _ int64) error {
	m.multipart++
	return m.Put(ctx, p, data, "")
}

func (m *memBlobs) Exists(_ context.Context, p string) (bool, error) {
	_, ok := m.objects[p]
	return ok, nil
}

func TestArchiveEnvelope(t *testing.T) {
	blobs := newMemBlobs()
	a := NewArchiver(blobs, blobs, "/archive/")

	env := domain.ResponseEnvelope{
		MessageID: "m1",
		Operation: "BUY_POSITION",
		Success:   true,
		TxHashes:  []string{"0xAA", "0xBB"},
		Receipts:  map[string][]byte{"0xBB": []byte(`{"status":"0x1"}`)},
		EndedAt:   time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC),
	}
	p, err := a.ArchiveEnvelope(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "archive/envelopes/2026/03/01/m1.json", p)

	var got map[string]any
	require.NoError(t, json.Unmarshal(blobs.objects[p], &got))
	assert.Equal(t, "BUY_POSITION", got["operation"])
	assert.NotContains(t, got, "receipts")

	assert.Equal(t, `{"status":"0x1"}`, string(blobs.objects["archive/receipts/2026/03/01/m1/0xbb.json"]))
	assert.Len(t, blobs.objects, 2)
}

func TestArchiveEnvelope_NeverOverwrites(t *testing.T) {
	blobs := newMemBlobs()
	a := NewArchiver(blobs, blobs, "")
	blobs.objects["envelopes/2026/03/01/m1.json"] = []byte("original")

	_, err := a.ArchiveEnvelope(context.Background(), domain.ResponseEnvelope{
		MessageID: "m1",
		EndedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "original", string(blobs.objects["envelopes/2026/03/01/m1.json"]))
}

func TestArchiveEnvelope_RequiresMessageID(t *testing.T) {
	_, err := NewArchiver(newMemBlobs(), nil, "").ArchiveEnvelope(context.Background(), domain.ResponseEnvelope{})
	assert.Error(t, err)
}

func TestArchiveReceipt_UsesClock(t *testing.T) {
	blobs := newMemBlobs()
	a := NewArchiver(blobs, nil, "p")
	a.now = func() time.Time { return time.Date(2026, 12, 31, 23, 0, 0, 0, time.FixedZone("X", -3600)) }

	p, err := a.ArchiveReceipt(context.Background(), "m2", "0xCC", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "p/receipts/2027/01/01/m2/0xcc.json", p)
}

func TestArchive_LargePayloadUsesMultipart(t *testing.T) {
	blobs := newMemBlobs()
	a := NewArchiver(blobs, nil, "")
	big := make([]byte, multipartThreshold)

	_, err := a.ArchiveReceipt(context.Background(), "m3", "0x01", big)
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.multipart)
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", endpointURL("https://s3.example.com", false))
	assert.Equal(t, "https://minio:9000", endpointURL("minio:9000", true))
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", false))
}
