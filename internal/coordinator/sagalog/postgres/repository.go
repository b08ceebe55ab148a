// Package postgres stores the saga log in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS saga_logs (
    id              BIGSERIAL   PRIMARY KEY,
    saga_id         TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    current_step    TEXT        NOT NULL DEFAULT '',
    payload         JSONB,
    error_messages  JSONB       NOT NULL DEFAULT '[]',
    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saga_logs_saga_id ON saga_logs(saga_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_saga_logs_trace_id ON saga_logs(trace_id);
`

var (
	_ sagalog.Repository = (*Repository)(nil)
	_ sagalog.Reader     = (*Repository)(nil)
)

type Repository struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn, pings it and applies the schema.
func Connect(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	r.pool.Close()
}

func (r *Repository) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	var payload any
	if entry.Payload != "" {
		payload = entry.Payload
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO saga_logs
			(saga_id, status, current_step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.SagaID, string(entry.Status), entry.CurrentStep, payload,
		entry.ErrorMessages, entry.TraceID, entry.SpanID, entry.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: save saga log for %q: %w", entry.SagaID, err)
	}
	return nil
}

const selectColumns = `saga_id, status, current_step, COALESCE(payload::text, ''), error_messages::text,
	trace_id, span_id, updated_at`

func (r *Repository) GetLatest(ctx context.Context, sagaID string) (*sagalog.SagaLog, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM saga_logs
		WHERE saga_id = $1 ORDER BY updated_at DESC, id DESC LIMIT 1`, sagaID)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: saga %q: %w", sagaID, sagalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get latest for %q: %w", sagaID, err)
	}
	return entry, nil
}

func (r *Repository) History(ctx context.Context, sagaID string) ([]sagalog.SagaLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM saga_logs
		WHERE saga_id = $1 ORDER BY updated_at, id`, sagaID)
	if err != nil {
		return nil, fmt.Errorf("postgres: history for %q: %w", sagaID, err)
	}
	defer rows.Close()

	var out []sagalog.SagaLog
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: history for %q: %w", sagaID, err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("postgres: saga %q: %w", sagaID, sagalog.ErrNotFound)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*sagalog.SagaLog, error) {
	var (
		e      sagalog.SagaLog
		status string
	)
	if err := row.Scan(&e.SagaID, &status, &e.CurrentStep, &e.Payload, &e.ErrorMessages,
		&e.TraceID, &e.SpanID, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = sagalog.Status(status)
	return &e, nil
}
