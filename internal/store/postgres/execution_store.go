package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// ExecutionStore is the ledger of handled messages, one row per message id.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

const executionCols = `message_id, user_id, operation, success, error_kind,
	tx_hashes, states, data, error, created_at`

// Record inserts rec. A message id already in the ledger is left untouched.
func (s *ExecutionStore) Record(ctx context.Context, rec domain.ExecutionRecord) error {
	data, err := marshalNullable(rec.Data)
	if err != nil {
		return fmt.Errorf("postgres: marshal execution data: %w", err)
	}
	var errJSON []byte
	if rec.Error != nil {
		if errJSON, err = json.Marshal(rec.Error); err != nil {
			return fmt.Errorf("postgres: marshal execution error: %w", err)
		}
	}
	hashes := rec.TxHashes
	if hashes == nil {
		hashes = []string{}
	}
	states := rec.States
	if states == nil {
		states = []string{}
	}

	const query = `INSERT INTO executions (` + executionCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		ON CONFLICT (message_id) DO NOTHING`
	var created any
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt
	}
	if _, err := s.pool.Exec(ctx, query,
		rec.MessageID, rec.UserID, rec.Operation, rec.Success, rec.ErrorKind,
		hashes, states, data, errJSON, created,
	); err != nil {
		return fmt.Errorf("postgres: record execution %s: %w", rec.MessageID, err)
	}
	return nil
}

// GetByMessageID returns domain.ErrNotFound for an unknown id.
func (s *ExecutionStore) GetByMessageID(ctx context.Context, messageID string) (domain.ExecutionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+executionCols+` FROM executions WHERE message_id = $1`, messageID)
	rec, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExecutionRecord{}, fmt.Errorf("postgres: execution %s: %w", messageID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("postgres: get execution %s: %w", messageID, err)
	}
	return rec, nil
}

// List returns records newest first, optionally for one operation.
func (s *ExecutionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ExecutionRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Operation != "" {
		args = append(args, opts.Operation)
		where = append(where, "operation = $1")
	}
	query, args := listQuery(`SELECT `+executionCols+` FROM executions`, where, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()

	var out []domain.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	return out, nil
}

func scanExecution(row pgx.Row) (domain.ExecutionRecord, error) {
	var (
		rec           domain.ExecutionRecord
		data, errJSON []byte
	)
	if err := row.Scan(
		&rec.MessageID, &rec.UserID, &rec.Operation, &rec.Success, &rec.ErrorKind,
		&rec.TxHashes, &rec.States, &data, &errJSON, &rec.CreatedAt,
	); err != nil {
		return rec, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return rec, fmt.Errorf("decode data: %w", err)
		}
	}
	if len(errJSON) > 0 {
		rec.Error = new(domain.ErrorDescriptor)
		if err := json.Unmarshal(errJSON, rec.Error); err != nil {
			return rec, fmt.Errorf("decode error: %w", err)
		}
	}
	return rec, nil
}

// marshalNullable encodes m, or returns nil for an empty map so the column
// stays NULL.
func marshalNullable(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

var _ domain.ExecutionStore = (*ExecutionStore)(nil)
