package finny

import "fmt"

type eventKind uint8

const (
	kindEvent eventKind = iota
	kindTimer
)

// Event is either a plain machine event or the marker of a triggered timer.
type Event[E any, T comparable] struct {
	kind  eventKind
	event E
	timer T
}

// NewEvent wraps a plain event value.
func NewEvent[E any, T comparable](ev E) Event[E, T] {
	return Event[E, T]{kind: kindEvent, event: ev}
}

// TimerEvent marks that the timer id has triggered.
func TimerEvent[E any, T comparable](id T) Event[E, T] {
	return Event[E, T]{kind: kindTimer, timer: id}
}

// IsTimer reports whether the event is a timer trigger.
func (e Event[E, T]) IsTimer() bool { return e.kind == kindTimer }

// Event returns the plain event value.
func (e Event[E, T]) Event() (E, bool) {
	return e.event, e.kind == kindEvent
}

// Timer returns the identifier of the triggered timer.
func (e Event[E, T]) Timer() (T, bool) {
	return e.timer, e.kind == kindTimer
}

func (e Event[E, T]) String() string {
	if e.kind == kindTimer {
		return fmt.Sprintf("Timer(%v)", e.timer)
	}
	return fmt.Sprintf("%v", e.event)
}
