package finny

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/matiu2/finny/internal/primitives"
)

// TimerSettings is what a timer capability needs to run a timer.
type TimerSettings struct {
	Enabled bool
	Timeout time.Duration
	Renew   bool
}

// TimerScheduler creates and cancels timers. It is the part of the timer
// capability the dispatch engine uses, and the part a sub-machine can reach
// through TimersSub.
type TimerScheduler[T comparable] interface {
	Create(id T, settings TimerSettings) error
	Cancel(id T) error
}

// Timers is the full timer capability owned by a frontend. GetTriggeredTimer is
// polled until it reports false; timers are returned in trigger order.
type Timers[T comparable] interface {
	TimerScheduler[T]
	GetTriggeredTimer() (T, bool)
}

// TimersNull rejects every operation. Use it for machines without timers.
type TimersNull[T comparable] struct{}

func (TimersNull[T]) Create(id T, _ TimerSettings) error {
	return fmt.Errorf("create timer %v: %w", id, ErrNotSupported)
}

func (TimersNull[T]) Cancel(id T) error {
	return fmt.Errorf("cancel timer %v: %w", id, ErrNotSupported)
}

func (TimersNull[T]) GetTriggeredTimer() (T, bool) {
	var zero T
	return zero, false
}

// TimersSub translates a sub-machine's timer ids into the parent's ids.
//
// It does not implement Timers: triggered timers are only polled from the
// top-level capability and routed down to the sub-machine by the dispatch engine.
type TimersSub[PT, CT comparable] struct {
	parent  TimerScheduler[PT]
	timerUp func(CT) PT
}

// NewTimersSub adapts parent to the child's timer ids.
func NewTimersSub[PT, CT comparable](parent TimerScheduler[PT], timerUp func(CT) PT) *TimersSub[PT, CT] {
	return &TimersSub[PT, CT]{parent: parent, timerUp: timerUp}
}

func (t *TimersSub[PT, CT]) Create(id CT, settings TimerSettings) error {
	if t.timerUp == nil {
		return fmt.Errorf("create timer %v: %w", id, ErrMissingConversion)
	}
	return t.parent.Create(t.timerUp(id), settings)
}

func (t *TimersSub[PT, CT]) Cancel(id CT) error {
	if t.timerUp == nil {
		return fmt.Errorf("cancel timer %v: %w", id, ErrMissingConversion)
	}
	return t.parent.Cancel(t.timerUp(id))
}

// TimersStd is a poll-based timer capability backed by a clock. Nothing runs in
// the background; deadlines are evaluated in GetTriggeredTimer. Each id holds
// at most one scheduled deadline.
type TimersStd[T comparable] struct {
	clock    clock.Clock
	live     map[T]TimerSettings
	deadline primitives.DeadlineHeap[T]
}

// NewTimersStd creates timers measured against clk. A nil clk uses the wall clock.
func NewTimersStd[T comparable](clk clock.Clock) *TimersStd[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &TimersStd[T]{clock: clk, live: make(map[T]TimerSettings)}
}

// Create arms id, replacing any timer already running under the same id.
func (t *TimersStd[T]) Create(id T, settings TimerSettings) error {
	if settings.Renew && settings.Timeout <= 0 {
		return fmt.Errorf("create timer %v: renewing timer needs a positive timeout", id)
	}
	t.live[id] = settings
	t.deadline.Push(id, t.clock.Now().Add(settings.Timeout))
	return nil
}

// Cancel disarms id. Cancelling a timer that already fired or never existed is not an error.
func (t *TimersStd[T]) Cancel(id T) error {
	delete(t.live, id)
	t.deadline.Remove(id)
	return nil
}

func (t *TimersStd[T]) GetTriggeredTimer() (T, bool) {
	due, ok := t.deadline.PopDue(t.clock.Now())
	if !ok {
		var zero T
		return zero, false
	}
	if settings := t.live[due.Key]; settings.Renew {
		t.deadline.Push(due.Key, due.At.Add(settings.Timeout))
	} else {
		delete(t.live, due.Key)
	}
	return due.Key, true
}

// Active returns the number of armed timers.
func (t *TimersStd[T]) Active() int { return len(t.live) }

// Scheduled returns the number of pending deadlines. It never exceeds Active.
func (t *TimersStd[T]) Scheduled() int { return t.deadline.Len() }
