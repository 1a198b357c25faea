package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader inspects object storage.
type BlobReader interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver copies execution artifacts to cold storage.
type Archiver interface {
	ArchiveEnvelope(ctx context.Context, env ResponseEnvelope) (string, error)
	ArchiveReceipt(ctx context.Context, messageID, txHash string, receipt []byte) (string, error)
}
