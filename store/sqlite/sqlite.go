// Package sqlite implements grace.Store using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/seniorsherpa/grace"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithTable adds a record table beyond the default to create on Init.
func WithTable(name string) StoreOption {
	return func(s *Store) { s.tables = append(s.tables, name) }
}

// Store implements grace.Store backed by a local SQLite file.
// Record metadata is stored as a JSON text column.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	tables []string
}

var _ grace.Store = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger, tables: []string{grace.DefaultTable}}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
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
	start := time.Now()
	s.logger.Debug("sqlite: init started")

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
			metadata TEXT,
			created_at INTEGER NOT NULL
		)`, table)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		_, _ = s.db.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_room ON %s(room_id, created_at)`, table, table))
	}

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// CreateRecord inserts or replaces a record.
func (s *Store) CreateRecord(ctx context.Context, table string, rec grace.Record) error {
	start := time.Now()
	s.logger.Debug("sqlite: create record", "id", rec.ID, "room_id", rec.RoomID, "kind", rec.Metadata.Kind)

	if !safeTable(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	var metaJSON *string
	if !rec.Metadata.IsZero() {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		v := string(data)
		metaJSON = &v
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, room_id, entity_id, agent_id, text, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, table),
		rec.ID, rec.RoomID, rec.EntityID, rec.AgentID, rec.Text, metaJSON, rec.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: create record failed", "id", rec.ID, "error", err, "duration", time.Since(start))
		return fmt.Errorf("create record: %w", err)
	}
	s.logger.Debug("sqlite: create record ok", "id", rec.ID, "duration", time.Since(start))
	return nil
}

// QueryRecords returns the most recent records for a room, ordered
// chronologically (oldest first).
func (s *Store) QueryRecords(ctx context.Context, roomID string, limit int, table string) ([]grace.Record, error) {
	start := time.Now()
	s.logger.Debug("sqlite: query records", "room_id", roomID, "limit", limit)

	if !safeTable(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, room_id, entity_id, agent_id, text, metadata, created_at
		 FROM %s
		 WHERE room_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, table),
		roomID, limit,
	)
	if err != nil {
		s.logger.Error("sqlite: query records failed", "room_id", roomID, "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []grace.Record
	for rows.Next() {
		var r grace.Record
		var metaJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.RoomID, &r.EntityID, &r.AgentID, &r.Text, &metaJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if metaJSON.Valid {
			r.Metadata = grace.ParseMetadata([]byte(metaJSON.String))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	// Reverse to chronological order (oldest first).
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	s.logger.Debug("sqlite: query records ok", "room_id", roomID, "count", len(records), "duration", time.Since(start))
	return records, nil
}

// DB returns the underlying *sql.DB for hosts that need direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}
