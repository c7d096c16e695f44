package finny_test

import (
	"testing"
	"time"

	. "github.com/matiu2/finny"
	"github.com/matiu2/finny/testutil"
)

type State string

const (
	Idle    State = "Idle"
	Running State = "Running"
)

type Ev interface{ isEv() }

type Start struct{}
type Stop struct{}
type Tick struct{}
type Ping struct{}

func (Start) isEv() {}
func (Stop) isEv()  {}
func (Tick) isEv()  {}
func (Ping) isEv()  {}

func (Start) String() string { return "Start" }
func (Stop) String() string  { return "Stop" }
func (Tick) String() string  { return "Tick" }
func (Ping) String() string  { return "Ping" }

type TimerID string

const TickTimer TimerID = "tick"

type workerCtx struct {
	Log   []string
	Ticks int
}

type (
	workerBuilder  = Builder[workerCtx, State, Ev, TimerID]
	workerFrontend = Frontend[workerCtx, State, Ev, TimerID]
	workerEC       = EventContext[workerCtx, Ev, TimerID]
)

func logAction(msg string) Action[workerCtx, Ev, TimerID] {
	return func(ctx *workerEC) { ctx.Context.Log = append(ctx.Context.Log, msg) }
}

// buildWorker declares Idle <-> Running. Running starts a five second timer
// that enqueues Tick, and counts Ticks with an internal transition.
func buildWorker(t *testing.T, customize ...func(b *workerBuilder)) *Schema[workerCtx, State, Ev, TimerID] {
	t.Helper()
	b := NewBuilder[workerCtx, State, Ev, TimerID]("worker")
	b.InitialState(Idle)
	b.State(Idle).
		OnEntry(logAction("enter Idle")).
		OnExit(logAction("exit Idle")).
		On(Start{}).TransitionTo(Running)
	running := b.State(Running).
		OnEntry(logAction("enter Running")).
		OnExit(logAction("exit Running")).
		OnEntryStartTimer(TickTimer,
			func(_ *workerCtx, s *TimerFsmSettings) { s.Timeout = 5 * time.Second },
			func(_ *workerCtx, _ State) (Ev, bool) { return Tick{}, true })
	running.On(Stop{}).TransitionTo(Idle)
	running.On(Tick{}).InternalTransition().Action(func(_ Ev, ctx *workerEC) { ctx.Context.Ticks++ })
	for _, fn := range customize {
		fn(b)
	}
	schema, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return schema
}

func startWorker(t *testing.T, schema *Schema[workerCtx, State, Ev, TimerID], timers Timers[TimerID]) (*workerFrontend, *testutil.Recorder) {
	t.Helper()
	rec := testutil.NewRecorder()
	fsm, err := NewWith(schema, workerCtx{}, NewQueueVec[Ev, TimerID](), rec, timers)
	if err != nil {
		t.Fatalf("NewWith failed: %v", err)
	}
	if err := fsm.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return fsm, rec
}

func enqueue(t *testing.T, fsm *workerFrontend, events ...Ev) {
	t.Helper()
	for _, ev := range events {
		if err := fsm.Enqueue(ev); err != nil {
			t.Fatalf("Enqueue(%v) failed: %v", ev, err)
		}
	}
}

func send(t *testing.T, fsm *workerFrontend, events ...Ev) {
	t.Helper()
	enqueue(t, fsm, events...)
	if err := fsm.DriveUntilEmpty(); err != nil {
		t.Fatalf("DriveUntilEmpty failed: %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
