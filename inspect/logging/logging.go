// Package logging is an Inspect sink writing dispatch activity to zap.
//
// Every narrowing adds structured fields, so a line logged inside a
// sub-machine transition carries the machine path, the event and the
// transition endpoints.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matiu2/finny"
)

// Inspect logs guards, state changes and actions at debug level, Info
// messages at debug level and errors at error level.
type Inspect struct {
	log  *zap.SugaredLogger
	path string
}

var _ finny.Inspect = Inspect{}

// New wraps log. A nil log discards everything.
func New(log *zap.SugaredLogger) Inspect {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return Inspect{log: log}
}

func (i Inspect) NewEvent(machine string, event any) finny.Inspect {
	path := i.path
	if path == "" {
		path = machine
	}
	next := Inspect{log: i.log.With("machine", path, "event", fmt.Sprint(event)), path: path}
	next.log.Debugw("Dispatching event")
	return next
}

func (i Inspect) ForTransition(from, to any) finny.Inspect {
	return Inspect{log: i.log.With("from", fmt.Sprint(from), "to", fmt.Sprint(to)), path: i.path}
}

func (i Inspect) ForSubMachine(name string) finny.Inspect {
	path := name
	if i.path != "" {
		path = i.path + "/" + name
	}
	return Inspect{log: i.log.With("sub_machine", path), path: path}
}

func (i Inspect) ForTimer(timer any) finny.Inspect {
	return Inspect{log: i.log.With("timer", fmt.Sprint(timer)), path: i.path}
}

func (i Inspect) OnGuard(passed bool) {
	i.log.Debugw("Guard evaluated", "passed", passed)
}

func (i Inspect) OnStateEnter(state any) {
	i.log.Debugw("Entering state", "state", fmt.Sprint(state))
}

func (i Inspect) OnStateExit(state any) {
	i.log.Debugw("Exiting state", "state", fmt.Sprint(state))
}

func (i Inspect) OnAction(action string) {
	i.log.Debugw("Running action", "action", action)
}

func (i Inspect) EventDone() {
	i.log.Debugw("Event done")
}

func (i Inspect) OnError(msg string, err error) {
	i.log.Errorw(msg, "error", err)
}

func (i Inspect) Info(msg string) {
	i.log.Debugw(msg)
}
