package grace

import "encoding/json"

// --- Memory store records ---

// DefaultTable is the record table used for conversation history and
// discovery snapshots.
const DefaultTable = "memories"

// Record is one entry in the append-only memory log for a room.
// Both user messages, agent messages, and discovery snapshots are records;
// the Metadata kind distinguishes them.
type Record struct {
	ID        string   `json:"id"`
	RoomID    string   `json:"room_id"`
	EntityID  string   `json:"entity_id"` // author: a user ID or the agent ID
	AgentID   string   `json:"agent_id"`
	Text      string   `json:"text"`
	Metadata  Metadata `json:"metadata,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// AgentAuthored reports whether the record was written by the agent itself.
func (r Record) AgentAuthored() bool {
	return r.AgentID != "" && r.EntityID == r.AgentID
}

// MetadataKind discriminates the typed record metadata variants.
type MetadataKind string

const (
	// MetaStageEntered tags an agent-authored message with the stage it was
	// produced in. The most recent such tag is the stored conversation stage.
	MetaStageEntered MetadataKind = "stage_entered"
	// MetaUserResponse marks a persisted raw user answer for a discovery stage.
	MetaUserResponse MetadataKind = "user_response"
	// MetaRecordSnapshot carries a full ConversationRecord snapshot.
	// Reconstruction folds all snapshots for a room+user pair.
	MetaRecordSnapshot MetadataKind = "record_snapshot"
	// MetaStatusChanged records a free-text user status update.
	MetaStatusChanged MetadataKind = "status_changed"
)

// Metadata is the typed metadata attached to a Record. Consumers must
// tolerate absent or malformed fields: parsing always degrades to the zero
// value rather than failing.
type Metadata struct {
	Kind           MetadataKind    `json:"kind,omitempty"`
	Stage          Stage           `json:"stage,omitempty"`
	Status         string          `json:"status,omitempty"`
	AskedQuestion  string          `json:"asked_question,omitempty"`
	DiscoveryStage string          `json:"discovery_stage,omitempty"`
	UserResponse   string          `json:"user_response,omitempty"`
	Snapshot       json.RawMessage `json:"snapshot,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
}

// IsZero reports whether no metadata field is set.
func (m Metadata) IsZero() bool {
	return m.Kind == "" && m.Stage == "" && m.Status == "" &&
		m.AskedQuestion == "" && m.DiscoveryStage == "" &&
		m.UserResponse == "" && len(m.Snapshot) == 0 && m.Timestamp == ""
}

// ParseMetadata decodes a JSON metadata blob, tolerating absent or malformed
// input: nil, empty, or invalid JSON yields the zero Metadata.
func ParseMetadata(data []byte) Metadata {
	var m Metadata
	if len(data) == 0 {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}
	}
	return m
}

// --- Inbound / outbound message types ---

// IncomingMessage is an inbound user message delivered to the Engine.
type IncomingMessage struct {
	ID       string
	RoomID   string
	EntityID string // author
	AgentID  string // the agent this message is addressed to
	Text     string
	Source   string // originating channel ("cli", "telegram", ...)
}

// Content is the outbound response payload delivered through an EmitFunc.
type Content struct {
	Text    string   `json:"text"`
	Source  string   `json:"source,omitempty"`
	Actions []string `json:"actions,omitempty"`
}

// --- LLM protocol types ---

// ChatMessage is a single message in an LLM chat request.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is the input to a Provider.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the output of a Provider.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token usage for a single LLM call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UserMessage builds a user-role chat message.
func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

// SystemMessage builds a system-role chat message.
func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}
