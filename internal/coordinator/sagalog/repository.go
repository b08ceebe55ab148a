package sagalog

import "context"

// Repository appends entries. The orchestrator only ever writes, so a nil
// Repository, SQLite or Postgres all satisfy it.
type Repository interface {
	Save(ctx context.Context, entry *SagaLog) error
}

// Reader is implemented by backends that can answer status queries.
type Reader interface {
	// GetLatest returns the newest entry for sagaID, or ErrNotFound.
	GetLatest(ctx context.Context, sagaID string) (*SagaLog, error)
	// History returns every entry for sagaID, oldest first, or ErrNotFound.
	History(ctx context.Context, sagaID string) ([]SagaLog, error)
}
