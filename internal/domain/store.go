package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	// Operation narrows execution listings to one operation id.
	Operation string
}

// ExecutionRecord is the ledger row for one handled message.
type ExecutionRecord struct {
	MessageID string
	UserID    string
	Operation string
	Success   bool
	ErrorKind string
	TxHashes  []string
	States    []string
	Data      map[string]any
	Error     *ErrorDescriptor
	CreatedAt time.Time
}

// ExecutionStore persists the execution ledger.
type ExecutionStore interface {
	Record(ctx context.Context, rec ExecutionRecord) error
	GetByMessageID(ctx context.Context, messageID string) (ExecutionRecord, error)
	List(ctx context.Context, opts ListOpts) ([]ExecutionRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
