package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/matiu2/finny"
)

type cmd interface{ fmt.Stringer }

type inc struct{ By int }
type arm struct{}
type expired struct{}

func (e inc) String() string   { return fmt.Sprintf("inc(%d)", e.By) }
func (arm) String() string     { return "arm" }
func (expired) String() string { return "expired" }

type counter struct {
	Count int
	Seen  []string
}

type counterFrontend = finny.Frontend[counter, string, cmd, string]

const tickRate = 10 * time.Millisecond

func counterSchema(t *testing.T) *finny.Schema[counter, string, cmd, string] {
	t.Helper()
	b := finny.NewBuilder[counter, string, cmd, string]("counter")
	b.InitialState("idle")
	b.State("idle").On(inc{}).InternalTransition().Action(func(ev cmd, ec *finny.EventContext[counter, cmd, string]) {
		ec.Context.Count += ev.(inc).By
		ec.Context.Seen = append(ec.Context.Seen, ev.String())
	})
	b.State("idle").On(arm{}).TransitionTo("armed")
	b.State("armed").
		OnEntryStartTimer("deadline", func(_ *counter, s *finny.TimerFsmSettings) {
			s.Timeout = 100 * time.Millisecond
		}, func(*counter, string) (cmd, bool) {
			return expired{}, true
		}).
		On(expired{}).TransitionTo("idle")
	schema, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return schema
}

func newCounter(t *testing.T, clk clock.Clock, cfg Config) *Runner[counter, string, cmd, string] {
	t.Helper()
	f, err := finny.New(counterSchema(t), counter{}, finny.WithClock(clk))
	if err != nil {
		t.Fatalf("new frontend: %v", err)
	}
	cfg.Clock = clk
	return NewRunner(f, cfg)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func mustSend(t *testing.T, rt *Runner[counter, string, cmd, string], ev cmd, priority int) {
	t.Helper()
	if err := rt.SendWithPriority(ev, priority); err != nil {
		t.Fatalf("send %v: %v", ev, err)
	}
}

func snapshotOf(t *testing.T, rt *Runner[counter, string, cmd, string]) counter {
	t.Helper()
	var c counter
	if err := rt.Do(func(f *counterFrontend) error {
		c = *f.Context()
		c.Seen = append([]string(nil), c.Seen...)
		return nil
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	return c
}

func TestTickBeforeStart(t *testing.T) {
	rt := newCounter(t, clock.NewMock(), Config{})
	if err := rt.Tick(); !errors.Is(err, finny.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestTickDispatchesBatchInPriorityOrder(t *testing.T) {
	rt := newCounter(t, clock.NewMock(), Config{})
	if err := rt.Do(func(f *counterFrontend) error { return f.Start() }); err != nil {
		t.Fatal(err)
	}

	mustSend(t, rt, inc{By: 1}, 0)
	mustSend(t, rt, inc{By: 2}, 5)
	mustSend(t, rt, inc{By: 3}, 0)
	mustSend(t, rt, inc{By: 4}, 5)

	if err := rt.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	got := snapshotOf(t, rt)
	want := []string{"inc(2)", "inc(4)", "inc(1)", "inc(3)"}
	if fmt.Sprint(got.Seen) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got.Seen, want)
	}
	if got.Count != 10 {
		t.Errorf("count = %d, want 10", got.Count)
	}
	if rt.TickNumber() != 1 {
		t.Errorf("tick number = %d, want 1", rt.TickNumber())
	}
}

func TestSendRejectsWhenBatchFull(t *testing.T) {
	rt := newCounter(t, clock.NewMock(), Config{MaxEventsPerTick: 2})
	for i := 0; i < 2; i++ {
		if err := rt.Send(inc{By: 1}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	err := rt.Send(inc{By: 1})
	if !errors.Is(err, ErrBatchFull) || !errors.Is(err, finny.ErrQueueFull) {
		t.Fatalf("expected ErrBatchFull wrapping ErrQueueFull, got %v", err)
	}
}

func TestTickDispatchesTriggeredTimers(t *testing.T) {
	mock := clock.NewMock()
	rt := newCounter(t, mock, Config{})
	if err := rt.Do(func(f *counterFrontend) error { return f.Start() }); err != nil {
		t.Fatal(err)
	}
	mustSend(t, rt, arm{}, 0)
	if err := rt.Tick(); err != nil {
		t.Fatal(err)
	}
	state := func() string {
		var s string
		if err := rt.Do(func(f *counterFrontend) error { s = f.State(0); return nil }); err != nil {
			t.Fatal(err)
		}
		return s
	}
	if state() != "armed" {
		t.Fatalf("state = %s, want armed", state())
	}

	mock.Add(50 * time.Millisecond)
	if err := rt.Tick(); err != nil {
		t.Fatal(err)
	}
	if state() != "armed" {
		t.Fatalf("timer fired early")
	}

	mock.Add(50 * time.Millisecond)
	if err := rt.Tick(); err != nil {
		t.Fatal(err)
	}
	if state() != "idle" {
		t.Fatalf("state = %s, want idle after the timer expired", state())
	}
}

func TestRunnerLoop(t *testing.T) {
	mock := clock.NewMock()
	rt := newCounter(t, mock, Config{TickRate: tickRate})

	if rt.Lifecycle() != LifecycleStopped {
		t.Fatalf("lifecycle = %s", rt.Lifecycle())
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.Lifecycle() != LifecycleRunning {
		t.Fatalf("lifecycle = %s", rt.Lifecycle())
	}
	if err := rt.Start(context.Background()); err == nil {
		t.Fatal("second start succeeded")
	}

	mustSend(t, rt, inc{By: 7}, 0)
	mock.Add(tickRate)
	waitFor(t, "first tick", func() bool { return rt.TickNumber() >= 1 })
	if got := snapshotOf(t, rt).Count; got != 7 {
		t.Errorf("count = %d, want 7", got)
	}

	if err := rt.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if rt.Lifecycle() != LifecycleStopped {
		t.Fatalf("lifecycle = %s", rt.Lifecycle())
	}
	if err := rt.Stop(); err == nil {
		t.Fatal("second stop succeeded")
	}

	ticks := rt.TickNumber()
	mock.Add(10 * tickRate)
	if rt.TickNumber() != ticks {
		t.Errorf("ticked after stop")
	}
}

func TestRunnerRestart(t *testing.T) {
	mock := clock.NewMock()
	rt := newCounter(t, mock, Config{TickRate: tickRate})
	for round := 1; round <= 2; round++ {
		if err := rt.Start(context.Background()); err != nil {
			t.Fatalf("start %d: %v", round, err)
		}
		mustSend(t, rt, inc{By: 1}, 0)
		mock.Add(tickRate)
		waitFor(t, "tick", func() bool { return snapshotOf(t, rt).Count == round })
		if err := rt.Stop(); err != nil {
			t.Fatalf("stop %d: %v", round, err)
		}
	}
}

func TestAttachChannelSource(t *testing.T) {
	mock := clock.NewMock()
	rt := newCounter(t, mock, Config{TickRate: tickRate})
	ch := make(chan cmd, 4)
	if err := rt.Attach(NewChannelSource(ch)); err != nil {
		t.Fatal(err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer rt.Stop()

	if err := rt.Attach(NewChannelSource(ch)); err == nil {
		t.Error("attach while running succeeded")
	}

	ch <- inc{By: 2}
	ch <- inc{By: 3}
	waitFor(t, "events forwarded", func() bool {
		mock.Add(tickRate)
		return snapshotOf(t, rt).Count == 5
	})
}

func TestTickerSource(t *testing.T) {
	mock := clock.NewMock()
	src := NewTickerSource[cmd](mock, time.Second, inc{By: 1})

	var mu sync.Mutex
	var got []cmd
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range src.Events() {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		}
	}()

	waitFor(t, "ticker event", func() bool {
		mock.Add(time.Second)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	})
	src.Stop()
	<-done
	if got[0] != (inc{By: 1}) {
		t.Errorf("event = %v", got[0])
	}
}

func TestTickerSourceStopTwice(t *testing.T) {
	src := NewTickerSource[cmd](clock.NewMock(), time.Second, inc{By: 1})
	src.Stop()
	src.Stop()
	if _, open := <-src.Events(); open {
		t.Error("event channel still open after Stop")
	}
}

func TestTickRecoversFromPanickingAction(t *testing.T) {
	b := finny.NewBuilder[counter, string, cmd, string]("panicky")
	b.InitialState("idle")
	b.State("idle").On(inc{}).InternalTransition().Action(func(ev cmd, ec *finny.EventContext[counter, cmd, string]) {
		if ev.(inc).By < 0 {
			panic("negative")
		}
		ec.Context.Count += ev.(inc).By
	})
	schema, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	f, err := finny.New(schema, counter{})
	if err != nil {
		t.Fatal(err)
	}
	mock := clock.NewMock()
	rt := NewRunner(f, Config{TickRate: tickRate, Clock: mock})
	if err := rt.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer rt.Stop()

	mustSend(t, rt, inc{By: -1}, 0)
	mock.Add(tickRate)
	mustSend(t, rt, inc{By: 4}, 0)
	waitFor(t, "recovery", func() bool {
		mock.Add(tickRate)
		return snapshotOf(t, rt).Count == 4
	})
}

func TestSortEventsIsStable(t *testing.T) {
	events := []EventWithMeta[string]{
		{Event: "a", SequenceNum: 0},
		{Event: "b", SequenceNum: 1, Priority: -1},
		{Event: "c", SequenceNum: 2, Priority: 1},
		{Event: "d", SequenceNum: 3},
	}
	sortEvents(events)
	var got string
	for _, e := range events {
		got += e.Event
	}
	if got != "cadb" {
		t.Errorf("order = %s, want cadb", got)
	}
}
