package grace

import "context"

// Store abstracts the append-only memory log. Records are never updated or
// deleted; current state is always a fold over history.
type Store interface {
	// CreateRecord appends a record to the given table.
	CreateRecord(ctx context.Context, table string, rec Record) error
	// QueryRecords returns up to limit of the most recent records for a room,
	// ordered chronologically (oldest first).
	QueryRecords(ctx context.Context, roomID string, limit int, table string) ([]Record, error)

	// Init creates required tables. Safe to call multiple times.
	Init(ctx context.Context) error
	Close() error
}
