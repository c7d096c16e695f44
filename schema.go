package finny

import (
	"fmt"
	"reflect"
)

// Action runs on state entry or exit.
type Action[C any, E any, T comparable] func(ctx *EventContext[C, E, T])

// TransitionAction runs while a transition is taken.
type TransitionAction[C any, E any, T comparable] func(ev E, ctx *EventContext[C, E, T])

// Guard decides whether a transition is taken. It must not mutate the context.
type Guard[C any, E any] func(ev E, ctx *C) bool

type transitionKind int

const (
	transitionUnset transitionKind = iota
	transitionExternal
	transitionSelf
	transitionInternal
)

func (k transitionKind) String() string {
	switch k {
	case transitionExternal:
		return "external"
	case transitionSelf:
		return "self"
	case transitionInternal:
		return "internal"
	default:
		return "unset"
	}
}

type transitionDef[C any, S comparable, E any, T comparable] struct {
	kind   transitionKind
	from   S
	to     S
	key    any
	label  string
	guard  Guard[C, E]
	action TransitionAction[C, E, T]
}

type stateDef[C any, S comparable, E any, T comparable] struct {
	id          S
	region      RegionID
	onEntry     Action[C, E, T]
	onExit      Action[C, E, T]
	transitions map[any]*transitionDef[C, S, E, T]
	order       []*transitionDef[C, S, E, T]
	timers      []*timerDef[C, S, E, T]
	sub         SubMachine[C, E, T]
}

// Schema is the immutable description of one machine: its states, regions,
// transition table, timers and sub-machines. Build it once with a Builder and
// share it between any number of instances.
type Schema[C any, S comparable, E any, T comparable] struct {
	name     string
	version  string
	initial  []S
	order    []S
	states   map[S]*stateDef[C, S, E, T]
	timers   map[T]*timerDef[C, S, E, T]
	eventKey func(E) any
}

// Name returns the machine name.
func (s *Schema[C, S, E, T]) Name() string { return s.name }

// Regions returns the number of regions.
func (s *Schema[C, S, E, T]) Regions() int { return len(s.initial) }

// InitialStates returns the initial state of every region.
func (s *Schema[C, S, E, T]) InitialStates() []S {
	return append([]S(nil), s.initial...)
}

// RegionOf returns the region a state belongs to.
func (s *Schema[C, S, E, T]) RegionOf(state S) (RegionID, bool) {
	def, ok := s.states[state]
	if !ok {
		return 0, false
	}
	return def.region, true
}

// HasTimers reports whether the machine or any nested sub-machine declares a timer.
func (s *Schema[C, S, E, T]) HasTimers() bool {
	if len(s.timers) > 0 {
		return true
	}
	for _, def := range s.states {
		if def.sub != nil && def.sub.hasTimers() {
			return true
		}
	}
	return false
}

// timerIDs lists the timers declared by the machine followed by those of its
// sub-machines, mapped into this machine's timer space.
func (s *Schema[C, S, E, T]) timerIDs() []T {
	var out []T
	for _, id := range s.order {
		for _, td := range s.states[id].timers {
			out = append(out, td.id)
		}
	}
	for _, id := range s.order {
		if sub := s.states[id].sub; sub != nil {
			out = append(out, sub.timerIDs()...)
		}
	}
	return out
}

func (s *Schema[C, S, E, T]) key(ev E) any {
	return s.eventKey(ev)
}

// EventTypeKey routes events by their dynamic type. It is the default, suited
// to event types declared as an interface with one struct per variant.
func EventTypeKey[E any](ev E) any {
	return reflect.TypeOf(ev)
}

// EventValueKey routes events by value, for enum-like comparable event types.
func EventValueKey[E comparable](ev E) any {
	return ev
}

func label(v any) string {
	if t, ok := v.(reflect.Type); ok && t != nil {
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
	return fmt.Sprint(v)
}
