package finny

import (
	"errors"
	"fmt"
)

// Conversion is the bidirectional mapping between a parent machine's event and
// timer types and those of a sub-machine.
type Conversion[PE any, PT comparable, CE any, CT comparable] struct {
	// ToChild extracts the sub-machine event carried by a parent event. It
	// reports false for parent events that are not meant for the sub-machine.
	ToChild func(PE) (CE, bool)
	// FromChild wraps an event the sub-machine enqueues.
	FromChild func(CE) PE
	// TimerToParent names a sub-machine timer in the parent's timer space.
	TimerToParent func(CT) PT
	// TimerFromParent recognises parent timer ids that belong to the sub-machine.
	TimerFromParent func(PT) (CT, bool)
}

// SubMachine is a nested machine hosted by a parent state. The parent sees it
// only through its own context, event and timer types.
type SubMachine[PC any, PE any, PT comparable] interface {
	Name() string
	Describe() Description

	validate() error
	hasTimers() bool
	timerIDs() []PT
	instantiate(parent *PC) subInstance[PE, PT]
}

// subInstance is a live sub-machine embedded in a parent's region slot.
type subInstance[PE any, PT comparable] interface {
	start(env dispatchEnv[PE, PT])
	stop(env dispatchEnv[PE, PT])
	// dispatch reports whether the event belonged to the sub-machine.
	dispatch(env dispatchEnv[PE, PT], ev Event[PE, PT]) (bool, error)
	states() []any
	snapshot() (Snapshot, error)
}

// Sub binds child as a sub-machine. newContext builds the child's context from
// the parent's every time the hosting state is entered; nil leaves it zero.
func Sub[PC any, PE any, PT comparable, CC any, CS comparable, CE any, CT comparable](
	child *Schema[CC, CS, CE, CT],
	newContext func(parent *PC) CC,
	conv Conversion[PE, PT, CE, CT],
) SubMachine[PC, PE, PT] {
	return &subMachine[PC, PE, PT, CC, CS, CE, CT]{child: child, newContext: newContext, conv: conv}
}

type subMachine[PC any, PE any, PT comparable, CC any, CS comparable, CE any, CT comparable] struct {
	child      *Schema[CC, CS, CE, CT]
	newContext func(parent *PC) CC
	conv       Conversion[PE, PT, CE, CT]
}

func (m *subMachine[PC, PE, PT, CC, CS, CE, CT]) Name() string {
	if m.child == nil {
		return ""
	}
	return m.child.name
}

func (m *subMachine[PC, PE, PT, CC, CS, CE, CT]) Describe() Description {
	return m.child.Describe()
}

func (m *subMachine[PC, PE, PT, CC, CS, CE, CT]) validate() error {
	if m.child == nil {
		return errors.New("nil schema")
	}
	if m.conv.FromChild == nil {
		return fmt.Errorf("no FromChild conversion: %w", ErrMissingConversion)
	}
	if m.child.HasTimers() && (m.conv.TimerToParent == nil || m.conv.TimerFromParent == nil) {
		return fmt.Errorf("declares timers without timer conversions: %w", ErrMissingConversion)
	}
	return nil
}

// timerIDs returns the child's timer ids, nested ones included, as the parent
// sees them.
func (m *subMachine[PC, PE, PT, CC, CS, CE, CT]) timerIDs() []PT {
	if m.child == nil || m.conv.TimerToParent == nil {
		return nil
	}
	ids := m.child.timerIDs()
	out := make([]PT, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.conv.TimerToParent(id))
	}
	return out
}

func (m *subMachine[PC, PE, PT, CC, CS, CE, CT]) hasTimers() bool {
	return m.child != nil && m.child.HasTimers()
}

func (m *subMachine[PC, PE, PT, CC, CS, CE, CT]) instantiate(parent *PC) subInstance[PE, PT] {
	var ctx CC
	if m.newContext != nil {
		ctx = m.newContext(parent)
	}
	return &subRouter[PC, PE, PT, CC, CS, CE, CT]{m: m, backend: NewBackend(m.child, ctx)}
}

// subRouter drives an embedded child backend through adapters over the
// parent's queue, timers and instrumentation.
type subRouter[PC any, PE any, PT comparable, CC any, CS comparable, CE any, CT comparable] struct {
	m       *subMachine[PC, PE, PT, CC, CS, CE, CT]
	backend *Backend[CC, CS, CE, CT]
}

// adapt builds the per-call views the child runs against.
func (r *subRouter[PC, PE, PT, CC, CS, CE, CT]) adapt(env dispatchEnv[PE, PT]) dispatchEnv[CE, CT] {
	return dispatchEnv[CE, CT]{
		queue:   NewQueueSub(env.queue, r.m.conv.FromChild, r.m.conv.TimerToParent),
		timers:  NewTimersSub(env.timers, r.m.conv.TimerToParent),
		inspect: env.inspect.ForSubMachine(r.m.child.name),
	}
}

func (r *subRouter[PC, PE, PT, CC, CS, CE, CT]) start(env dispatchEnv[PE, PT]) {
	r.backend.start(r.adapt(env))
}

func (r *subRouter[PC, PE, PT, CC, CS, CE, CT]) stop(env dispatchEnv[PE, PT]) {
	r.backend.stop(r.adapt(env))
}

func (r *subRouter[PC, PE, PT, CC, CS, CE, CT]) dispatch(env dispatchEnv[PE, PT], ev Event[PE, PT]) (bool, error) {
	if id, ok := ev.Timer(); ok {
		if r.m.conv.TimerFromParent == nil {
			return false, nil
		}
		childID, ok := r.m.conv.TimerFromParent(id)
		if !ok {
			return false, nil
		}
		return true, r.backend.dispatch(r.adapt(env), TimerEvent[CE](childID))
	}

	e, _ := ev.Event()
	if r.m.conv.ToChild == nil {
		return false, ErrMissingConversion
	}
	childEvent, ok := r.m.conv.ToChild(e)
	if !ok {
		return false, nil
	}
	return true, r.backend.dispatch(r.adapt(env), NewEvent[CE, CT](childEvent))
}

func (r *subRouter[PC, PE, PT, CC, CS, CE, CT]) states() []any {
	out := make([]any, 0, len(r.backend.regions))
	for _, slot := range r.backend.regions {
		out = append(out, slot.state)
	}
	return out
}

func (r *subRouter[PC, PE, PT, CC, CS, CE, CT]) snapshot() (Snapshot, error) {
	return r.backend.snapshot()
}
