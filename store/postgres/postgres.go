// Package postgres implements grace.Store using PostgreSQL with JSONB
// record metadata.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorsherpa/grace"
)

// Store implements grace.Store backed by PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	tables []string
}

// Option configures a PostgreSQL Store.
type Option func(*Store)

// WithTable adds a record table beyond the default to create on Init.
func WithTable(name string) Option {
	return func(s *Store) { s.tables = append(s.tables, name) }
}

var _ grace.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, tables: []string{grace.DefaultTable}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// safeTable reports whether the name contains only alphanumeric chars and
// underscores. Table names are interpolated into SQL, so anything else is
// rejected.
func safeTable(name string) bool {
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return len(name) > 0
}

// Init creates the record tables and their indexes.
func (s *Store) Init(ctx context.Context) error {
	for _, table := range s.tables {
		if !safeTable(table) {
			return fmt.Errorf("invalid table name %q", table)
		}
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			text TEXT NOT NULL,
			metadata JSONB,
			created_at BIGINT NOT NULL
		)`, table)
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		_, err := s.pool.Exec(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_room ON %s(room_id, created_at)`, table, table))
		if err != nil {
			return fmt.Errorf("create index on %s: %w", table, err)
		}
	}
	return nil
}

// CreateRecord inserts or replaces a record.
func (s *Store) CreateRecord(ctx context.Context, table string, rec grace.Record) error {
	if !safeTable(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	var metaJSON []byte
	if !rec.Metadata.IsZero() {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = data
	}

	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, room_id, entity_id, agent_id, text, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, metadata = EXCLUDED.metadata`, table),
		rec.ID, rec.RoomID, rec.EntityID, rec.AgentID, rec.Text, metaJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// QueryRecords returns the most recent records for a room, ordered
// chronologically (oldest first).
func (s *Store) QueryRecords(ctx context.Context, roomID string, limit int, table string) ([]grace.Record, error) {
	if !safeTable(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, room_id, entity_id, agent_id, text, metadata, created_at
		 FROM %s
		 WHERE room_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, table),
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []grace.Record
	for rows.Next() {
		var r grace.Record
		var metaJSON []byte
		if err := rows.Scan(&r.ID, &r.RoomID, &r.EntityID, &r.AgentID, &r.Text, &metaJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(metaJSON) > 0 {
			r.Metadata = grace.ParseMetadata(metaJSON)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Close is a no-op: the pool is owned by the caller.
func (s *Store) Close() error { return nil }
