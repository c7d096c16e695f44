// Package sentry is an Inspect sink reporting dispatch errors to Sentry.
//
// State changes are recorded as breadcrumbs on the hub's scope, so a reported
// error carries the transitions that led up to it.
package sentry

import (
	"fmt"

	"github.com/getsentry/sentry-go"

	"github.com/matiu2/finny"
)

const category = "finny"

// Inspect reports to a Sentry hub.
type Inspect struct {
	hub  *sentry.Hub
	path string
	tags map[string]string
}

var _ finny.Inspect = Inspect{}

// New reports to hub. A nil hub uses the current global hub.
func New(hub *sentry.Hub) Inspect {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return Inspect{hub: hub}
}

func (i Inspect) with(kv ...string) Inspect {
	tags := make(map[string]string, len(i.tags)+len(kv)/2)
	for k, v := range i.tags {
		tags[k] = v
	}
	for n := 0; n+1 < len(kv); n += 2 {
		tags[kv[n]] = kv[n+1]
	}
	i.tags = tags
	return i
}

func (i Inspect) NewEvent(machine string, event any) finny.Inspect {
	path := i.path
	if path == "" {
		path = machine
	}
	next := Inspect{hub: i.hub, path: path}
	return next.with("machine", path, "event", fmt.Sprint(event))
}

func (i Inspect) ForTransition(from, to any) finny.Inspect {
	return i.with("from", fmt.Sprint(from), "to", fmt.Sprint(to))
}

func (i Inspect) ForSubMachine(name string) finny.Inspect {
	path := name
	if i.path != "" {
		path = i.path + "/" + name
	}
	i.path = path
	return i.with("machine", path)
}

func (i Inspect) ForTimer(timer any) finny.Inspect {
	return i.with("timer", fmt.Sprint(timer))
}

func (i Inspect) breadcrumb(msg string) {
	data := make(map[string]any, len(i.tags))
	for k, v := range i.tags {
		data[k] = v
	}
	i.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  msg,
		Level:    sentry.LevelInfo,
		Data:     data,
	}, nil)
}

func (i Inspect) OnGuard(passed bool) {
	if !passed {
		i.breadcrumb("Guard rejected the transition.")
	}
}

func (i Inspect) OnStateEnter(state any) {
	i.breadcrumb(fmt.Sprintf("Entered %v", state))
}

func (Inspect) OnStateExit(any) {}

func (Inspect) OnAction(string) {}

func (Inspect) EventDone() {}

// OnError captures err with the current tags.
func (i Inspect) OnError(msg string, err error) {
	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = msg
	event.Tags = i.tags
	if err != nil {
		event.Exception = []sentry.Exception{{
			Type:       msg,
			Value:      err.Error(),
			Stacktrace: sentry.ExtractStacktrace(err),
		}}
	}
	event.Fingerprint = []string{"{{ default }}", i.path, msg}
	i.hub.CaptureEvent(event)
}

func (i Inspect) Info(msg string) {
	i.breadcrumb(msg)
}
