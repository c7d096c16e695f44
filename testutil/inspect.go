// Package testutil provides fakes for exercising machines in tests: an
// Inspect that records every notification and a timer capability fired by hand.
package testutil

import (
	"fmt"
	"sync"

	"github.com/matiu2/finny"
)

// Record is one instrumentation notification.
type Record struct {
	Scope  string
	Kind   string
	Detail string
	Err    error
}

func (r Record) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %s %s: %v", r.Scope, r.Kind, r.Detail, r.Err)
	}
	return fmt.Sprintf("%s %s %s", r.Scope, r.Kind, r.Detail)
}

type recordLog struct {
	mu      sync.Mutex
	records []Record
}

// Recorder is an Inspect that appends every notification to a shared log.
// Narrowed handles write to the same log with a longer scope.
type Recorder struct {
	log   *recordLog
	scope string
}

var _ finny.Inspect = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{log: &recordLog{}}
}

func (r *Recorder) with(scope string) *Recorder {
	if r.scope != "" {
		scope = r.scope + "/" + scope
	}
	return &Recorder{log: r.log, scope: scope}
}

func (r *Recorder) add(kind, detail string, err error) {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	r.log.records = append(r.log.records, Record{Scope: r.scope, Kind: kind, Detail: detail, Err: err})
}

// NewEvent scopes a top-level handle to the machine. Sub-machine handles are
// already scoped by ForSubMachine and keep their scope.
func (r *Recorder) NewEvent(machine string, event any) finny.Inspect {
	child := r
	if r.scope == "" {
		child = r.with(machine)
	}
	child.add("event", fmt.Sprint(event), nil)
	return child
}

func (r *Recorder) ForTransition(from, to any) finny.Inspect {
	r.add("transition", fmt.Sprintf("%v->%v", from, to), nil)
	return r
}

func (r *Recorder) ForSubMachine(name string) finny.Inspect {
	return r.with(name)
}

func (r *Recorder) ForTimer(timer any) finny.Inspect {
	return &Recorder{log: r.log, scope: fmt.Sprintf("%s#%v", r.scope, timer)}
}

func (r *Recorder) OnGuard(passed bool)           { r.add("guard", fmt.Sprint(passed), nil) }
func (r *Recorder) OnStateEnter(state any)        { r.add("enter", fmt.Sprint(state), nil) }
func (r *Recorder) OnStateExit(state any)         { r.add("exit", fmt.Sprint(state), nil) }
func (r *Recorder) OnAction(action string)        { r.add("action", action, nil) }
func (r *Recorder) EventDone()                    { r.add("done", "", nil) }
func (r *Recorder) OnError(msg string, err error) { r.add("error", msg, err) }
func (r *Recorder) Info(msg string)               { r.add("info", msg, nil) }

// Records returns a copy of the log.
func (r *Recorder) Records() []Record {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	return append([]Record(nil), r.log.records...)
}

// Details returns the details of every record of the given kind, in order.
func (r *Recorder) Details(kind string) []string {
	var out []string
	for _, rec := range r.Records() {
		if rec.Kind == kind {
			out = append(out, rec.Detail)
		}
	}
	return out
}

// Errors returns the error records.
func (r *Recorder) Errors() []Record {
	var out []Record
	for _, rec := range r.Records() {
		if rec.Kind == "error" {
			out = append(out, rec)
		}
	}
	return out
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	r.log.records = nil
}
