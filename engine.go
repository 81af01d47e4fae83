package grace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Canned responses. These are deliberately fixed strings so the conversation
// stays predictable when the LLM is unavailable.
const (
	greetingResponse = "Hello! I'm Grace, and I'm here to help you explore senior living options for your family. To get started, could I get your name, phone number, and the name of your loved one you're looking for senior living options for?"

	askAllContactResponse = "I'd love to help you! To get started, could I get your name, phone number, and the name of your loved one you're looking for senior living options for?"

	primaryFallbackResponse = "I'd be happy to get you the information you need, but before I do, do you mind if I ask a few quick questions? That way, I can really understand what's important and make sure I'm helping in the best way possible."

	secondaryFallbackResponse = "Hello! I'm Grace, and I'm here to help you explore senior living options. How can I assist you today?"

	ultimateFallbackResponse = "Hello! I'm Grace, and I'm here to help you explore senior living options for your family. How can I assist you today?"

	transitionResponse = "Perfect! I have a good understanding of your situation. Thank you for sharing so openly with me. Let me now show you some options that could help."

	generalInquiryResponse = "I'd be happy to help you learn more about Grand Villa. What would you like to know?"
)

const actionName = "GRACE_SHERPA"

const historyLimit = 50

// EmitFunc delivers an outbound response to the host channel.
type EmitFunc func(Content)

// HandleResult summarizes one processed turn. Success is false only when the
// ultimate fallback fired; every other path, including LLM failures handled
// by cheaper fallbacks, counts as success. State is the discovery signal
// summary folded at the start of the turn, or the default state when history
// was unavailable.
type HandleResult struct {
	Text    string
	Stage   Stage
	State   DiscoveryState
	Success bool
	Err     error
}

// Engine drives the discovery conversation: it resolves the stage for each
// incoming message, dispatches to the stage handler, persists what it
// learned, and emits exactly one response per turn.
type Engine struct {
	store     Store
	extractor Extractor
	character Character
	logger    *slog.Logger
	tracer    Tracer
	agentID   string
	table     string

	mu    sync.Mutex
	cache map[string]cachedRecord
}

// cachedRecord memoizes a merged record per room+user. Version is the
// snapshot count the fold consumed; a differing count invalidates the entry.
type cachedRecord struct {
	version int
	record  ConversationRecord
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used to instrument turn handling.
func WithTracer(t Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithExtractor replaces the default LLM extractor.
func WithExtractor(x Extractor) EngineOption {
	return func(e *Engine) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithCharacter replaces the default Grace persona.
func WithCharacter(c Character) EngineOption {
	return func(e *Engine) { e.character = c }
}

// WithAgentID sets the agent's entity ID. Defaults to a fresh UUID.
func WithAgentID(id string) EngineOption {
	return func(e *Engine) {
		if id != "" {
			e.agentID = id
		}
	}
}

// WithTable overrides the record table name.
func WithTable(table string) EngineOption {
	return func(e *Engine) {
		if table != "" {
			e.table = table
		}
	}
}

// NewEngine builds an Engine on a chat provider and a record store. The
// provider backs the default extractor; pass WithExtractor to supply a
// custom one.
func NewEngine(provider Provider, store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		character: DefaultCharacter(),
		logger:    nopLogger,
		agentID:   NewID(),
		table:     DefaultTable,
		cache:     make(map[string]cachedRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = NewExtractor(provider, ExtractorLogger(e.logger))
	}
	return e
}

// AgentID returns the engine's entity ID, the author ID on its own records.
func (e *Engine) AgentID() string { return e.agentID }

// Handle processes one incoming message end to end. It never returns an
// error and never panics: any failure downgrades to a fallback response, and
// the emit callback is invoked exactly once with whatever response survived.
func (e *Engine) Handle(ctx context.Context, msg IncomingMessage, emit EmitFunc) (res HandleResult) {
	var span Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "engine.handle",
			StringAttr("room_id", msg.RoomID),
			StringAttr("entity_id", msg.EntityID))
		defer func() {
			if res.Err != nil {
				span.Error(res.Err)
			}
			span.SetAttr(StringAttr("stage", string(res.Stage)), BoolAttr("success", res.Success))
			span.End()
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic: %v", r)
			e.logger.Error("critical error, using ultimate fallback", "error", err)
			e.deliver(emit, msg, ultimateFallbackResponse)
			res = HandleResult{
				Text:    "Grace provided fallback response",
				State:   DiscoveryState{CurrentStage: StageTrustBuilding},
				Success: false,
				Err:     err,
			}
		}
	}()

	if msg.AgentID == "" {
		msg.AgentID = e.agentID
	}

	e.persistIncoming(ctx, msg)

	history, err := e.roomHistory(ctx, msg)
	if err != nil {
		e.logger.Warn("history unavailable, proceeding with empty history", "error", err)
		history = nil
	}

	// Discovery state folds first; an empty history yields the default state.
	state := FoldDiscoveryState(history)
	e.logger.Info("resolved discovery state",
		"stage", state.CurrentStage,
		"needs", len(state.IdentifiedNeeds),
		"ready_for_visit", state.ReadyForVisit)

	record := e.mergedRecord(msg.RoomID, msg.EntityID, history)
	stage := ResolveStage(history, record)
	e.logger.Info("resolved conversation stage", "stage", stage, "room_id", msg.RoomID)

	var response string
	nextStage := stage
	switch stage {
	case StageTrustBuilding:
		response, nextStage = e.handleTrustBuilding(ctx, msg, history, record)
	case StageSituationDiscovery:
		response, nextStage = e.handleSituationQuestions(ctx, msg, record)
	default:
		response = e.handleGeneralInquiry(ctx, msg)
	}

	if strings.TrimSpace(response) == "" {
		e.logger.Warn("empty response, using primary fallback")
		response = primaryFallbackResponse
	}
	if strings.TrimSpace(response) == "" {
		e.logger.Warn("primary fallback failed, using secondary fallback")
		response = secondaryFallbackResponse
	}

	e.persistAgentResponse(ctx, msg, response, nextStage)
	e.deliver(emit, msg, response)

	return HandleResult{
		Text:    "Grace provided Sherpa guidance: " + truncate(response, 100),
		Stage:   nextStage,
		State:   state,
		Success: true,
	}
}

func (e *Engine) deliver(emit EmitFunc, msg IncomingMessage, text string) {
	if emit == nil {
		return
	}
	source := msg.Source
	if source == "" {
		source = "grace-sherpa"
	}
	emit(Content{Text: text, Source: source, Actions: []string{actionName}})
}

// persistIncoming appends the user's message to the room log. Persistence
// failures are logged, not returned: losing one log entry must not stall the
// conversation.
func (e *Engine) persistIncoming(ctx context.Context, msg IncomingMessage) {
	if strings.TrimSpace(msg.Text) == "" || msg.EntityID == msg.AgentID {
		return
	}
	id := msg.ID
	if id == "" {
		id = NewID()
	}
	rec := Record{
		ID:        id,
		RoomID:    msg.RoomID,
		EntityID:  msg.EntityID,
		AgentID:   msg.AgentID,
		Text:      msg.Text,
		CreatedAt: NowUnix(),
	}
	if err := e.store.CreateRecord(ctx, e.table, rec); err != nil {
		e.logger.Error("failed to persist incoming message", "error", err)
	}
}

func (e *Engine) persistAgentResponse(ctx context.Context, msg IncomingMessage, text string, stage Stage) {
	rec := Record{
		ID:       NewID(),
		RoomID:   msg.RoomID,
		EntityID: msg.AgentID,
		AgentID:  msg.AgentID,
		Text:     text,
		Metadata: Metadata{
			Kind:      MetaStageEntered,
			Stage:     stage,
			Timestamp: NowISO(),
		},
		CreatedAt: NowUnix(),
	}
	if err := e.store.CreateRecord(ctx, e.table, rec); err != nil {
		e.logger.Error("failed to persist agent response", "error", err)
	}
}

// roomHistory loads recent records for the room, restricted to the current
// user and the agent so concurrent users in a shared room stay isolated.
func (e *Engine) roomHistory(ctx context.Context, msg IncomingMessage) ([]Record, error) {
	all, err := e.store.QueryRecords(ctx, msg.RoomID, historyLimit, e.table)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, r := range all {
		if r.EntityID == msg.EntityID || r.EntityID == msg.AgentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// mergedRecord returns the folded ConversationRecord for a room+user pair,
// reusing the cached fold when the snapshot count is unchanged.
func (e *Engine) mergedRecord(roomID, entityID string, history []Record) ConversationRecord {
	snapshots := SnapshotsFrom(history)
	key := roomID + "/" + entityID

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[key]; ok && c.version == len(snapshots) {
		return c.record
	}
	record := MergeRecords(snapshots, e.logger)
	e.cache[key] = cachedRecord{version: len(snapshots), record: record}
	return record
}

// saveSnapshot appends a full record snapshot for the room+user pair and
// refreshes the cache so the same turn observes its own write.
func (e *Engine) saveSnapshot(ctx context.Context, msg IncomingMessage, record ConversationRecord) {
	record.LastUpdated = NowISO()
	raw, err := record.MarshalSnapshot()
	if err != nil {
		e.logger.Error("failed to marshal record snapshot", "error", err)
		return
	}
	rec := Record{
		ID:       NewID(),
		RoomID:   msg.RoomID,
		EntityID: msg.EntityID,
		AgentID:  msg.AgentID,
		Text:     "[Discovery Record]",
		Metadata: Metadata{
			Kind:      MetaRecordSnapshot,
			Snapshot:  raw,
			Timestamp: NowISO(),
		},
		CreatedAt: NowUnix(),
	}
	if err := e.store.CreateRecord(ctx, e.table, rec); err != nil {
		e.logger.Error("failed to persist record snapshot", "error", err)
		return
	}

	key := msg.RoomID + "/" + msg.EntityID
	e.mu.Lock()
	if c, ok := e.cache[key]; ok {
		e.cache[key] = cachedRecord{version: c.version + 1, record: record}
	}
	e.mu.Unlock()
}

// saveUserResponse appends the raw user answer tagged with its discovery
// stage, mirroring the stage-keyed response log the analysis reads back.
func (e *Engine) saveUserResponse(ctx context.Context, msg IncomingMessage, stage string) {
	rec := Record{
		ID:       NewID(),
		RoomID:   msg.RoomID,
		EntityID: msg.EntityID,
		AgentID:  msg.AgentID,
		Text:     "[Discovery Response] " + msg.Text,
		Metadata: Metadata{
			Kind:           MetaUserResponse,
			DiscoveryStage: stage,
			UserResponse:   msg.Text,
			Timestamp:      NowISO(),
		},
		CreatedAt: NowUnix(),
	}
	if err := e.store.CreateRecord(ctx, e.table, rec); err != nil {
		e.logger.Error("failed to persist user response", "error", err)
	}
}

// UpdateUserStatus appends a free-text status marker for the user, e.g.
// "ready_for_visit". Later markers shadow earlier ones in the discovery
// state fold.
func (e *Engine) UpdateUserStatus(ctx context.Context, msg IncomingMessage, status string) error {
	rec := Record{
		ID:       NewID(),
		RoomID:   msg.RoomID,
		EntityID: msg.EntityID,
		AgentID:  msg.AgentID,
		Text:     "[Status Update] " + status,
		Metadata: Metadata{
			Kind:      MetaStatusChanged,
			Status:    status,
			Timestamp: NowISO(),
		},
		CreatedAt: NowUnix(),
	}
	return e.store.CreateRecord(ctx, e.table, rec)
}

// DiscoveryStateFor folds the discovery signal summary for a room+user pair.
func (e *Engine) DiscoveryStateFor(ctx context.Context, msg IncomingMessage) (DiscoveryState, error) {
	history, err := e.roomHistory(ctx, msg)
	if err != nil {
		return DiscoveryState{}, err
	}
	return FoldDiscoveryState(history), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
