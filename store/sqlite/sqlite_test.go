package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/seniorsherpa/grace"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func rec(id, roomID, text string, createdAt int64) grace.Record {
	return grace.Record{
		ID:        id,
		RoomID:    roomID,
		EntityID:  "user-1",
		AgentID:   "agent-1",
		Text:      text,
		CreatedAt: createdAt,
	}
}

func TestStore_CreateAndQueryRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := rec("r1", "room-1", "hello", 100)
	in.Metadata = grace.Metadata{
		Kind:      grace.MetaStageEntered,
		Stage:     grace.StageSituationDiscovery,
		Timestamp: "2026-01-01T00:00:00Z",
	}
	if err := s.CreateRecord(ctx, grace.DefaultTable, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.QueryRecords(ctx, "room-1", 10, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Text != "hello" || got[0].EntityID != "user-1" {
		t.Errorf("unexpected record: %+v", got[0])
	}
	if got[0].Metadata.Kind != grace.MetaStageEntered || got[0].Metadata.Stage != grace.StageSituationDiscovery {
		t.Errorf("metadata lost in roundtrip: %+v", got[0].Metadata)
	}
}

func TestStore_QueryReturnsChronologicalOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert out of order.
	for _, r := range []grace.Record{
		rec("r2", "room-1", "second", 200),
		rec("r1", "room-1", "first", 100),
		rec("r3", "room-1", "third", 300),
	} {
		if err := s.CreateRecord(ctx, grace.DefaultTable, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.QueryRecords(ctx, "room-1", 10, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestStore_QueryLimitKeepsMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, r := range []grace.Record{
		rec("r1", "room-1", "first", 100),
		rec("r2", "room-1", "second", 200),
		rec("r3", "room-1", "third", 300),
	} {
		if err := s.CreateRecord(ctx, grace.DefaultTable, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.QueryRecords(ctx, "room-1", 2, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Text != "second" || got[1].Text != "third" {
		t.Errorf("limit should keep the most recent records: %q, %q", got[0].Text, got[1].Text)
	}
}

func TestStore_QueryFiltersByRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.CreateRecord(ctx, grace.DefaultTable, rec("r1", "room-1", "mine", 100))
	_ = s.CreateRecord(ctx, grace.DefaultTable, rec("r2", "room-2", "theirs", 100))

	got, err := s.QueryRecords(ctx, "room-1", 10, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Text != "mine" {
		t.Errorf("expected only room-1 records, got %+v", got)
	}
}

func TestStore_NoMetadataStaysZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.CreateRecord(ctx, grace.DefaultTable, rec("r1", "room-1", "plain", 100))

	got, err := s.QueryRecords(ctx, "room-1", 10, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !got[0].Metadata.IsZero() {
		t.Errorf("record without metadata should come back zero: %+v", got[0].Metadata)
	}
}

func TestStore_SnapshotMetadataRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap, err := grace.ConversationRecord{
		Contact: grace.ContactInfo{Name: "John Smith", Phone: "555-123-4567"},
	}.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	in := rec("r1", "room-1", "[Discovery Record]", 100)
	in.Metadata = grace.Metadata{Kind: grace.MetaRecordSnapshot, Snapshot: snap}
	if err := s.CreateRecord(ctx, grace.DefaultTable, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.QueryRecords(ctx, "room-1", 10, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var decoded grace.ConversationRecord
	if err := json.Unmarshal(got[0].Metadata.Snapshot, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if decoded.Contact.Name != "John Smith" {
		t.Errorf("snapshot lost in roundtrip: %+v", decoded.Contact)
	}
}

func TestStore_ReplacesOnDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.CreateRecord(ctx, grace.DefaultTable, rec("r1", "room-1", "old", 100))
	_ = s.CreateRecord(ctx, grace.DefaultTable, rec("r1", "room-1", "new", 100))

	got, err := s.QueryRecords(ctx, "room-1", 10, grace.DefaultTable)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Text != "new" {
		t.Errorf("duplicate ID should replace, got %+v", got)
	}
}

func TestStore_RejectsUnsafeTableNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRecord(ctx, "memories; DROP TABLE memories", rec("r1", "room-1", "x", 100)); err == nil {
		t.Error("expected error for unsafe table name in create")
	}
	if _, err := s.QueryRecords(ctx, "room-1", 10, "bad table"); err == nil {
		t.Error("expected error for unsafe table name in query")
	}
}

func TestStore_InitRejectsUnsafeTable(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"), WithTable("bad-table"))
	defer s.Close()

	if err := s.Init(context.Background()); err == nil {
		t.Error("expected error for unsafe extra table name")
	}
}

func TestStore_InitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}
