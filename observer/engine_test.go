package observer

import (
	"context"
	"testing"

	"github.com/seniorsherpa/grace"
)

// stubTurnHandler records the last message it saw and returns a canned result.
type stubTurnHandler struct {
	calls int
	last  grace.IncomingMessage
	res   grace.HandleResult
}

func (s *stubTurnHandler) Handle(_ context.Context, msg grace.IncomingMessage, emit grace.EmitFunc) grace.HandleResult {
	s.calls++
	s.last = msg
	if emit != nil {
		emit(grace.Content{Text: "hi"})
	}
	return s.res
}

func TestWrapEngine_DelegatesAndPassesEmit(t *testing.T) {
	// Uninitialized globals give no-op instruments, fine for delegation tests.
	inst, err := newInstruments(nil)
	if err != nil {
		t.Fatalf("instruments: %v", err)
	}
	stub := &stubTurnHandler{res: grace.HandleResult{
		Text:    "guidance",
		Stage:   grace.StageSituationDiscovery,
		Success: true,
	}}
	e := WrapEngine(stub, inst)

	var emitted []grace.Content
	msg := grace.IncomingMessage{RoomID: "room-1", EntityID: "user-1", Text: "hello"}
	res := e.Handle(context.Background(), msg, func(c grace.Content) { emitted = append(emitted, c) })

	if stub.calls != 1 {
		t.Fatalf("got %d inner calls, want 1", stub.calls)
	}
	if stub.last.Text != "hello" {
		t.Errorf("message not passed through: %+v", stub.last)
	}
	if len(emitted) != 1 || emitted[0].Text != "hi" {
		t.Errorf("emit not passed through: %+v", emitted)
	}
	if res.Stage != grace.StageSituationDiscovery || !res.Success {
		t.Errorf("result not passed through: %+v", res)
	}
}

func TestWrapEngine_FallbackResult(t *testing.T) {
	inst, err := newInstruments(nil)
	if err != nil {
		t.Fatalf("instruments: %v", err)
	}
	stub := &stubTurnHandler{res: grace.HandleResult{Success: false}}
	e := WrapEngine(stub, inst)

	res := e.Handle(context.Background(), grace.IncomingMessage{RoomID: "room-1"}, nil)
	if res.Success {
		t.Error("fallback result should pass through unchanged")
	}
}
