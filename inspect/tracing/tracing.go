// Package tracing is an Inspect sink that records each dispatched event as an
// OpenTelemetry span. Guards, state changes, actions and timer messages
// become span events; errors are recorded on the span and mark it failed.
// Events dispatched into a sub-machine become child spans of the parent's
// dispatch span.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matiu2/finny"
)

const (
	keyMachine = attribute.Key("finny.machine")
	keyEvent   = attribute.Key("finny.event")
	keyFrom    = attribute.Key("finny.from")
	keyTo      = attribute.Key("finny.to")
	keyState   = attribute.Key("finny.state")
	keyTimer   = attribute.Key("finny.timer")
	keyAction  = attribute.Key("finny.action")
	keyPassed  = attribute.Key("finny.guard.passed")
)

// Inspect starts spans on a tracer.
type Inspect struct {
	tracer trace.Tracer
	ctx    context.Context
	span   trace.Span
	path   string
	attrs  []attribute.KeyValue
}

var _ finny.Inspect = Inspect{}

// New returns an Inspect whose top-level spans are children of the span in
// ctx, if any.
func New(ctx context.Context, tracer trace.Tracer) Inspect {
	if ctx == nil {
		ctx = context.Background()
	}
	return Inspect{tracer: tracer, ctx: ctx, span: trace.SpanFromContext(ctx)}
}

func (i Inspect) with(kv ...attribute.KeyValue) Inspect {
	attrs := make([]attribute.KeyValue, 0, len(i.attrs)+len(kv))
	attrs = append(attrs, i.attrs...)
	i.attrs = append(attrs, kv...)
	return i
}

func (i Inspect) NewEvent(machine string, event any) finny.Inspect {
	path := i.path
	if path == "" {
		path = machine
	}
	ctx, span := i.tracer.Start(i.ctx, "dispatch "+path,
		trace.WithAttributes(keyMachine.String(path), keyEvent.String(fmt.Sprint(event))))
	return Inspect{tracer: i.tracer, ctx: ctx, span: span, path: path}
}

func (i Inspect) ForTransition(from, to any) finny.Inspect {
	return i.with(keyFrom.String(fmt.Sprint(from)), keyTo.String(fmt.Sprint(to)))
}

func (i Inspect) ForSubMachine(name string) finny.Inspect {
	path := name
	if i.path != "" {
		path = i.path + "/" + name
	}
	return Inspect{tracer: i.tracer, ctx: i.ctx, span: i.span, path: path}
}

func (i Inspect) ForTimer(timer any) finny.Inspect {
	return i.with(keyTimer.String(fmt.Sprint(timer)))
}

func (i Inspect) event(name string, kv ...attribute.KeyValue) {
	attrs := append(append([]attribute.KeyValue{}, i.attrs...), kv...)
	i.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (i Inspect) OnGuard(passed bool) {
	i.event("guard", keyPassed.Bool(passed))
}

func (i Inspect) OnStateEnter(state any) {
	i.event("enter", keyState.String(fmt.Sprint(state)))
}

func (i Inspect) OnStateExit(state any) {
	i.event("exit", keyState.String(fmt.Sprint(state)))
}

func (i Inspect) OnAction(action string) {
	i.event("action", keyAction.String(action))
}

func (i Inspect) EventDone() {
	i.span.End()
}

func (i Inspect) OnError(msg string, err error) {
	i.span.RecordError(err, trace.WithAttributes(i.attrs...))
	i.span.SetStatus(codes.Error, msg)
}

func (i Inspect) Info(msg string) {
	i.event(msg)
}
