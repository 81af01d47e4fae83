package observer

import (
	"context"
	"time"

	"github.com/seniorsherpa/grace"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TurnHandler is the engine surface the observer wraps; *grace.Engine
// satisfies it.
type TurnHandler interface {
	Handle(ctx context.Context, msg grace.IncomingMessage, emit grace.EmitFunc) grace.HandleResult
}

// ObservedEngine wraps a TurnHandler with per-turn OTEL instrumentation:
// a span per turn plus turn count and duration metrics keyed by stage and
// outcome.
type ObservedEngine struct {
	inner TurnHandler
	inst  *Instruments
}

// WrapEngine returns an instrumented engine.
func WrapEngine(inner TurnHandler, inst *Instruments) *ObservedEngine {
	return &ObservedEngine{inner: inner, inst: inst}
}

// Handle delegates to the wrapped engine and records the turn.
func (o *ObservedEngine) Handle(ctx context.Context, msg grace.IncomingMessage, emit grace.EmitFunc) grace.HandleResult {
	ctx, span := o.inst.Tracer.Start(ctx, "conversation.turn", trace.WithAttributes(
		AttrRoomID.String(msg.RoomID),
	))
	defer span.End()
	start := time.Now()

	res := o.inner.Handle(ctx, msg, emit)

	status := "ok"
	if !res.Success {
		status = "fallback"
	}
	span.SetAttributes(
		AttrStage.String(string(res.Stage)),
		AttrTurnStatus.String(status),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
	}

	attrs := metric.WithAttributes(
		AttrStage.String(string(res.Stage)),
		AttrTurnStatus.String(status),
	)
	o.inst.Turns.Add(ctx, 1, attrs)
	o.inst.TurnDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	return res
}

var _ TurnHandler = (*ObservedEngine)(nil)
