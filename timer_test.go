package finny_test

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	. "github.com/matiu2/finny"
	"github.com/matiu2/finny/testutil"
)

func fireAndDrive(t *testing.T, fsm *workerFrontend, timers *testutil.ManualTimers[TimerID], id TimerID) {
	t.Helper()
	timers.Fire(id)
	n, err := fsm.DispatchTimerEvents()
	if err != nil {
		t.Fatalf("DispatchTimerEvents failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("DispatchTimerEvents = %d, want 1", n)
	}
	if err := fsm.DriveUntilEmpty(); err != nil {
		t.Fatalf("DriveUntilEmpty failed: %v", err)
	}
}

func TestTimerStartedOnEntry(t *testing.T) {
	timers := testutil.NewManualTimers[TimerID]()
	fsm, rec := startWorker(t, buildWorker(t), timers)

	send(t, fsm, Start{})

	settings, err := timers.Settings(TickTimer)
	if err != nil {
		t.Fatal(err)
	}
	if settings.Timeout != 5*time.Second || !settings.Enabled || settings.Renew {
		t.Errorf("settings = %+v", settings)
	}
	inst, ok := fsm.Backend().TimerInstance(TickTimer)
	if !ok {
		t.Fatal("no timer instance after entering Running")
	}
	if !inst.Settings.CancelOnStateExit {
		t.Error("CancelOnStateExit should default to true")
	}
	if got := rec.Details("info"); !containsString(got, "Started the timer.") {
		t.Errorf("info = %v", got)
	}
}

func TestTimerTriggerEnqueuesEvent(t *testing.T) {
	timers := testutil.NewManualTimers[TimerID]()
	fsm, rec := startWorker(t, buildWorker(t), timers)
	send(t, fsm, Start{})

	fireAndDrive(t, fsm, timers, TickTimer)

	if fsm.Context().Ticks != 1 {
		t.Errorf("Ticks = %d, want 1", fsm.Context().Ticks)
	}
	if got := rec.Details("info"); !containsString(got, "The event triggered by the timer was enqueued.") {
		t.Errorf("info = %v", got)
	}
	if fsm.State(0) != Running {
		t.Errorf("state = %v", fsm.State(0))
	}
}

func TestTimerCancelledOnExitAndLateTriggerIgnored(t *testing.T) {
	timers := testutil.NewManualTimers[TimerID]()
	fsm, rec := startWorker(t, buildWorker(t), timers)
	send(t, fsm, Start{}, Stop{})

	if timers.Live(TickTimer) {
		t.Fatal("timer still running after leaving Running")
	}
	if got := timers.Cancelled(); len(got) != 1 || got[0] != TickTimer {
		t.Fatalf("cancelled = %v", got)
	}
	if _, ok := fsm.Backend().TimerInstance(TickTimer); ok {
		t.Fatal("timer instance survived the exit")
	}

	rec.Reset()
	fireAndDrive(t, fsm, timers, TickTimer)

	errs := rec.Errors()
	if len(errs) != 1 || !errors.Is(errs[0].Err, ErrTimerNotStarted) {
		t.Fatalf("errors = %v, want one ErrTimerNotStarted", errs)
	}
	if fsm.QueueLen() != 0 || fsm.Context().Ticks != 0 {
		t.Errorf("late trigger had side effects: queue %d ticks %d", fsm.QueueLen(), fsm.Context().Ticks)
	}
}

func TestTimerDisabledBySetup(t *testing.T) {
	b := NewBuilder[workerCtx, State, Ev, TimerID]("disabled")
	b.InitialState(Idle)
	b.State(Idle).OnEntryStartTimer(TickTimer,
		func(_ *workerCtx, s *TimerFsmSettings) { s.Enabled = false },
		func(*workerCtx, State) (Ev, bool) { return Tick{}, true })
	schema, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	timers := testutil.NewManualTimers[TimerID]()
	_, rec := startWorker(t, schema, timers)

	if len(timers.Created()) != 0 {
		t.Errorf("disabled timer was created")
	}
	if got := rec.Details("info"); !containsString(got, "The timer wasn't enabled.") {
		t.Errorf("info = %v", got)
	}
}

func TestTimerCreateFailureIsReported(t *testing.T) {
	timers := testutil.NewManualTimers[TimerID]()
	timers.CreateErr = errors.New("wheel full")
	fsm, rec := startWorker(t, buildWorker(t), timers)

	send(t, fsm, Start{})

	if fsm.State(0) != Running {
		t.Fatalf("create failure must not block the transition, state = %v", fsm.State(0))
	}
	if _, ok := fsm.Backend().TimerInstance(TickTimer); ok {
		t.Error("failed timer left an instance")
	}
	errs := rec.Errors()
	if len(errs) != 1 || errs[0].Detail != "Failed to create a timer" {
		t.Errorf("errors = %v", errs)
	}
}

func TestTimerCancelFailureIsReported(t *testing.T) {
	timers := testutil.NewManualTimers[TimerID]()
	fsm, rec := startWorker(t, buildWorker(t), timers)
	send(t, fsm, Start{})
	timers.CancelErr = errors.New("gone")

	send(t, fsm, Stop{})

	if fsm.State(0) != Idle {
		t.Fatalf("state = %v", fsm.State(0))
	}
	if _, ok := fsm.Backend().TimerInstance(TickTimer); ok {
		t.Error("instance kept after cancel failure")
	}
	if errs := rec.Errors(); len(errs) != 1 || errs[0].Detail != "Failed to cancel the timer" {
		t.Errorf("errors = %v", errs)
	}
}

func TestTimerKeptWhenNotCancelledOnExit(t *testing.T) {
	schema := buildWorker(t, func(b *workerBuilder) {
		b.State(Idle).OnEntryStartTimer("keep",
			func(_ *workerCtx, s *TimerFsmSettings) { s.CancelOnStateExit = false },
			func(_ *workerCtx, s State) (Ev, bool) { return Ping{}, s == Idle })
	})
	timers := testutil.NewManualTimers[TimerID]()
	fsm, _ := startWorker(t, schema, timers)
	send(t, fsm, Start{})

	if !timers.Live("keep") {
		t.Fatal("timer cancelled despite CancelOnStateExit=false")
	}
	if _, ok := fsm.Backend().TimerInstance("keep"); !ok {
		t.Fatal("instance dropped despite CancelOnStateExit=false")
	}

	timers.Fire("keep")
	if _, err := fsm.DispatchTimerEvents(); err != nil {
		t.Fatal(err)
	}
	if _, err := fsm.Drive(); err != nil {
		t.Fatal(err)
	}
	if fsm.QueueLen() != 1 {
		t.Errorf("trigger should enqueue Ping, queue = %d", fsm.QueueLen())
	}
}

func TestNullTimersReportNotSupported(t *testing.T) {
	fsm, rec := startWorker(t, buildWorker(t), TimersNull[TimerID]{})

	send(t, fsm, Start{})

	errs := rec.Errors()
	if len(errs) != 1 || !errors.Is(errs[0].Err, ErrNotSupported) {
		t.Fatalf("errors = %v", errs)
	}
	if fsm.State(0) != Running {
		t.Errorf("state = %v", fsm.State(0))
	}
}

func TestStdTimersDriveTick(t *testing.T) {
	mock := clock.NewMock()
	fsm, err := New(buildWorker(t), workerCtx{}, WithClock(mock))
	if err != nil {
		t.Fatal(err)
	}
	if err := fsm.Start(); err != nil {
		t.Fatal(err)
	}
	send(t, fsm, Start{})

	mock.Add(4 * time.Second)
	if n, err := fsm.DispatchTimerEvents(); err != nil || n != 0 {
		t.Fatalf("timer fired early: %d, %v", n, err)
	}
	mock.Add(time.Second)
	if n, err := fsm.DispatchTimerEvents(); err != nil || n != 1 {
		t.Fatalf("timer did not fire at its deadline: %d, %v", n, err)
	}
	if err := fsm.DriveUntilEmpty(); err != nil {
		t.Fatal(err)
	}
	if fsm.Context().Ticks != 1 {
		t.Errorf("Ticks = %d", fsm.Context().Ticks)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
