package grace

import (
	"context"
	"sync"
)

// stubProvider is a test Provider that returns pre-configured results in
// order and records every request it receives.
type stubProvider struct {
	calls    int
	results  []stubResult
	requests []ChatRequest
}

type stubResult struct {
	resp ChatResponse
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	s.requests = append(s.requests, req)
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i].resp, s.results[i].err
	}
	return ChatResponse{}, nil
}

var _ Provider = (*stubProvider)(nil)

// memStore is an in-memory append-only Store. Records come back in insertion
// order, which tests treat as chronological.
type memStore struct {
	mu        sync.Mutex
	records   []Record
	createErr error
	queryErr  error
}

func (m *memStore) CreateRecord(_ context.Context, _ string, rec Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) QueryRecords(_ context.Context, roomID string, limit int, _ string) ([]Record, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) Init(_ context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

var _ Store = (*memStore)(nil)

// byKind returns the stored records carrying the given metadata kind.
func (m *memStore) byKind(kind MetadataKind) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.Metadata.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// stubExtractor is a canned Extractor for engine tests. Set panicContact to
// make ExtractContact panic, exercising the engine's recovery path.
type stubExtractor struct {
	contact      ContactExtraction
	analysis     AnswerAnalysis
	analysisErr  error
	reply        string
	replyErr     error
	panicContact bool

	contactCalls int
	analyzeCalls int
	composeCalls int
	lastCompose  ComposeRequest
}

func (s *stubExtractor) ExtractContact(_ context.Context, _ string, _ ContactInfo) ContactExtraction {
	s.contactCalls++
	if s.panicContact {
		panic("extractor exploded")
	}
	return s.contact
}

func (s *stubExtractor) AnalyzeAnswers(_ context.Context, _ []string, _ string) (AnswerAnalysis, error) {
	s.analyzeCalls++
	return s.analysis, s.analysisErr
}

func (s *stubExtractor) ComposeReply(_ context.Context, req ComposeRequest) (string, error) {
	s.composeCalls++
	s.lastCompose = req
	return s.reply, s.replyErr
}

var _ Extractor = (*stubExtractor)(nil)

// mustSnapshot marshals a record snapshot, failing loudly on error.
func mustSnapshot(rec ConversationRecord) []byte {
	raw, err := rec.MarshalSnapshot()
	if err != nil {
		panic(err)
	}
	return raw
}
