package grace

import (
	"encoding/json"
	"log/slog"
)

// ContactInfo holds the scalar contact fields gathered during trust building.
// An empty string means "not yet discovered". Once a field is non-empty it is
// never cleared by a merge, only overwritten by a newer non-empty value.
type ContactInfo struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	LovedOneName string `json:"loved_one_name,omitempty"`
	CollectedAt  string `json:"collected_at,omitempty"`
}

// Complete reports whether all three discoverable fields are known.
func (c ContactInfo) Complete() bool {
	return c.Name != "" && c.Phone != "" && c.LovedOneName != ""
}

// Empty reports whether no discoverable field is known yet.
func (c ContactInfo) Empty() bool {
	return c.Name == "" && c.Phone == "" && c.LovedOneName == ""
}

// QAEntry is one answered question. Question text is the dedup key: a merged
// record never carries two entries with the same Question.
type QAEntry struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

// ConversationRecord is the canonical accumulated state for a room+user
// pair. It is never stored as a mutable row: every update appends a full
// snapshot to the memory log, and the current state is the fold of all
// snapshots (see MergeRecords).
type ConversationRecord struct {
	Contact     ContactInfo `json:"contact_info"`
	Situation   []QAEntry   `json:"situation_discovery"`
	Lifestyle   []QAEntry   `json:"lifestyle_discovery"`
	Readiness   []QAEntry   `json:"readiness_discovery"`
	Priorities  []QAEntry   `json:"priorities_discovery"`
	LastUpdated string      `json:"last_updated"`
}

// Answers returns the answer list for a discovery stage, or nil for stages
// without a question list.
func (r *ConversationRecord) Answers(stage Stage) []QAEntry {
	switch stage {
	case StageSituationDiscovery:
		return r.Situation
	case StageLifestyleDiscovery:
		return r.Lifestyle
	case StageReadinessDiscovery:
		return r.Readiness
	case StagePrioritiesDiscovery:
		return r.Priorities
	default:
		return nil
	}
}

// Answered reports whether the record holds an answer whose question text
// exactly equals question, in any discovery stage list.
func (r *ConversationRecord) Answered(stage Stage, question string) bool {
	for _, e := range r.Answers(stage) {
		if e.Question == question {
			return true
		}
	}
	return false
}

// appendAnswers appends entries to the list for stage, skipping any entry
// whose question is already present (first-seen wins).
func (r *ConversationRecord) appendAnswers(stage Stage, entries []QAEntry) {
	for _, e := range entries {
		if r.Answered(stage, e.Question) {
			continue
		}
		switch stage {
		case StageSituationDiscovery:
			r.Situation = append(r.Situation, e)
		case StageLifestyleDiscovery:
			r.Lifestyle = append(r.Lifestyle, e)
		case StageReadinessDiscovery:
			r.Readiness = append(r.Readiness, e)
		case StagePrioritiesDiscovery:
			r.Priorities = append(r.Priorities, e)
		}
	}
}

// overlayContact merges src onto the accumulator: non-empty fields replace,
// empty fields preserve what is already known. A later snapshot can never
// regress a known scalar back to empty.
func (r *ConversationRecord) overlayContact(src ContactInfo) {
	if src.Name != "" {
		r.Contact.Name = src.Name
	}
	if src.Phone != "" {
		r.Contact.Phone = src.Phone
	}
	if src.LovedOneName != "" {
		r.Contact.LovedOneName = src.LovedOneName
	}
	if src.CollectedAt != "" {
		r.Contact.CollectedAt = src.CollectedAt
	}
}

// MergeRecords folds historical snapshots into one canonical record.
// Snapshots are applied in the given order (oldest first). Scalar contact
// fields follow most-recent-non-empty-wins; Q&A lists follow first-seen-wins
// keyed by exact question text. The asymmetry is intentional. Malformed
// snapshots are skipped and logged, never fatal.
//
// The fold is idempotent: merging the same snapshot list twice, or a merged
// result with its own inputs, yields the same record.
func MergeRecords(snapshots []json.RawMessage, logger *slog.Logger) ConversationRecord {
	if logger == nil {
		logger = nopLogger
	}

	var merged ConversationRecord
	for i, raw := range snapshots {
		var snap ConversationRecord
		if err := json.Unmarshal(raw, &snap); err != nil {
			logger.Warn("skipping malformed snapshot", "index", i, "error", err)
			continue
		}
		merged.overlayContact(snap.Contact)
		merged.appendAnswers(StageSituationDiscovery, snap.Situation)
		merged.appendAnswers(StageLifestyleDiscovery, snap.Lifestyle)
		merged.appendAnswers(StageReadinessDiscovery, snap.Readiness)
		merged.appendAnswers(StagePrioritiesDiscovery, snap.Priorities)
		if snap.LastUpdated != "" {
			merged.LastUpdated = snap.LastUpdated
		}
	}
	return merged
}

// MarshalSnapshot encodes the record as a snapshot payload.
func (r ConversationRecord) MarshalSnapshot() (json.RawMessage, error) {
	return json.Marshal(r)
}

// SnapshotsFrom extracts the snapshot payloads from a record history,
// preserving order. Records without snapshot metadata are ignored.
func SnapshotsFrom(history []Record) []json.RawMessage {
	var out []json.RawMessage
	for _, r := range history {
		if r.Metadata.Kind == MetaRecordSnapshot && len(r.Metadata.Snapshot) > 0 {
			out = append(out, r.Metadata.Snapshot)
		}
	}
	return out
}
