package finny

import (
	"errors"
	"fmt"
)

// SchemaOption configures a Builder.
type SchemaOption[E any] func(*schemaOptions[E])

type schemaOptions[E any] struct {
	eventKey func(E) any
	version  string
}

// WithEventKey sets how events are matched against transitions. Two events
// with equal keys trigger the same transition.
func WithEventKey[E any](fn func(E) any) SchemaOption[E] {
	return func(o *schemaOptions[E]) { o.eventKey = fn }
}

// WithVersion pins the schema version instead of deriving it from the description.
func WithVersion[E any](version string) SchemaOption[E] {
	return func(o *schemaOptions[E]) { o.version = version }
}

// Builder assembles a Schema. Mistakes are collected and reported by Build.
type Builder[C any, S comparable, E any, T comparable] struct {
	schema *Schema[C, S, E, T]
	errs   []error
}

// NewBuilder starts a schema for a machine called name.
func NewBuilder[C any, S comparable, E any, T comparable](name string, opts ...SchemaOption[E]) *Builder[C, S, E, T] {
	o := schemaOptions[E]{eventKey: EventTypeKey[E]}
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder[C, S, E, T]{
		schema: &Schema[C, S, E, T]{
			name:     name,
			version:  o.version,
			states:   make(map[S]*stateDef[C, S, E, T]),
			timers:   make(map[T]*timerDef[C, S, E, T]),
			eventKey: o.eventKey,
		},
	}
}

// InitialState declares a single-region machine starting in state.
func (b *Builder[C, S, E, T]) InitialState(state S) *Builder[C, S, E, T] {
	return b.InitialStates(state)
}

// InitialStates declares one region per state, in order.
func (b *Builder[C, S, E, T]) InitialStates(states ...S) *Builder[C, S, E, T] {
	if len(b.schema.initial) > 0 {
		b.errs = append(b.errs, errors.New("initial states declared twice"))
		return b
	}
	b.schema.initial = append(b.schema.initial, states...)
	return b
}

// State declares state, or returns the existing declaration.
func (b *Builder[C, S, E, T]) State(state S) *StateBuilder[C, S, E, T] {
	def, ok := b.schema.states[state]
	if !ok {
		def = &stateDef[C, S, E, T]{
			id:          state,
			region:      -1,
			transitions: make(map[any]*transitionDef[C, S, E, T]),
		}
		b.schema.states[state] = def
		b.schema.order = append(b.schema.order, state)
	}
	return &StateBuilder[C, S, E, T]{b: b, def: def}
}

// Build validates the declarations and returns the schema. The builder must
// not be used afterwards.
func (b *Builder[C, S, E, T]) Build() (*Schema[C, S, E, T], error) {
	s := b.schema
	errs := append([]error(nil), b.errs...)

	if s.name == "" {
		errs = append(errs, errors.New("machine name is empty"))
	}
	if s.eventKey == nil {
		errs = append(errs, errors.New("event key function is nil"))
	}
	if len(s.initial) == 0 {
		errs = append(errs, errors.New("no initial state"))
	}
	for _, id := range s.order {
		def := s.states[id]
		for _, t := range def.order {
			switch t.kind {
			case transitionUnset:
				errs = append(errs, fmt.Errorf("state %v: transition on %s has no target", id, t.label))
			case transitionExternal:
				if _, ok := s.states[t.to]; !ok {
					errs = append(errs, fmt.Errorf("state %v: transition on %s targets unknown state %v", id, t.label, t.to))
				}
			}
		}
		if def.sub != nil {
			if err := def.sub.validate(); err != nil {
				errs = append(errs, fmt.Errorf("state %v: sub-machine %s: %w", id, def.sub.Name(), err))
				continue
			}
			for _, tid := range def.sub.timerIDs() {
				if _, taken := s.timers[tid]; taken {
					errs = append(errs, fmt.Errorf("state %v: sub-machine %s: timer %v collides with a timer of %s", id, def.sub.Name(), tid, s.name))
				}
			}
		}
	}
	errs = append(errs, b.assignRegions()...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, s.name, errors.Join(errs...))
	}
	return s, nil
}

// assignRegions places every state in the region whose initial state reaches it.
func (b *Builder[C, S, E, T]) assignRegions() []error {
	s := b.schema
	var errs []error
	for r, initial := range s.initial {
		region := RegionID(r)
		def, ok := s.states[initial]
		if !ok {
			errs = append(errs, fmt.Errorf("region %d: initial state %v is not declared", region, initial))
			continue
		}
		if def.region >= 0 {
			errs = append(errs, fmt.Errorf("region %d: state %v already belongs to region %d", region, initial, def.region))
			continue
		}
		def.region = region
		pending := []*stateDef[C, S, E, T]{def}
		for len(pending) > 0 {
			cur := pending[0]
			pending = pending[1:]
			for _, t := range cur.order {
				if t.kind != transitionExternal {
					continue
				}
				next, ok := s.states[t.to]
				if !ok {
					continue
				}
				switch next.region {
				case -1:
					next.region = region
					pending = append(pending, next)
				case region:
				default:
					errs = append(errs, fmt.Errorf("state %v is reachable from regions %d and %d", next.id, next.region, region))
				}
			}
		}
	}
	for _, id := range s.order {
		if s.states[id].region < 0 {
			errs = append(errs, fmt.Errorf("state %v is not reachable from any initial state", id))
		}
	}
	return errs
}

// StateBuilder configures one state.
type StateBuilder[C any, S comparable, E any, T comparable] struct {
	b   *Builder[C, S, E, T]
	def *stateDef[C, S, E, T]
}

// OnEntry sets the entry action.
func (sb *StateBuilder[C, S, E, T]) OnEntry(fn Action[C, E, T]) *StateBuilder[C, S, E, T] {
	sb.def.onEntry = fn
	return sb
}

// OnExit sets the exit action.
func (sb *StateBuilder[C, S, E, T]) OnExit(fn Action[C, E, T]) *StateBuilder[C, S, E, T] {
	sb.def.onExit = fn
	return sb
}

// On declares the handler of events sharing sample's key. Finish it with
// TransitionTo, SelfTransition or InternalTransition.
func (sb *StateBuilder[C, S, E, T]) On(sample E) *TransitionBuilder[C, S, E, T] {
	key := sb.b.schema.eventKey(sample)
	t := &transitionDef[C, S, E, T]{from: sb.def.id, key: key, label: label(key)}
	if _, dup := sb.def.transitions[key]; dup {
		sb.b.errs = append(sb.b.errs, fmt.Errorf("state %v: duplicate transition on %s", sb.def.id, t.label))
	} else {
		sb.def.transitions[key] = t
		sb.def.order = append(sb.def.order, t)
	}
	return &TransitionBuilder[C, S, E, T]{sb: sb, def: t}
}

// OnEntryStartTimer starts timer id whenever the state is entered. setup may
// adjust the default settings; trigger produces the event enqueued when it fires.
func (sb *StateBuilder[C, S, E, T]) OnEntryStartTimer(id T, setup TimerSetup[C], trigger TimerTrigger[C, S, E]) *StateBuilder[C, S, E, T] {
	if owner, dup := sb.b.schema.timers[id]; dup {
		sb.b.errs = append(sb.b.errs, fmt.Errorf("state %v: timer %v already declared by state %v", sb.def.id, id, owner.state))
		return sb
	}
	td := &timerDef[C, S, E, T]{id: id, state: sb.def.id, setup: setup, trigger: trigger}
	sb.b.schema.timers[id] = td
	sb.def.timers = append(sb.def.timers, td)
	return sb
}

// SubMachine makes the state host a nested machine for as long as it is active.
func (sb *StateBuilder[C, S, E, T]) SubMachine(sm SubMachine[C, E, T]) *StateBuilder[C, S, E, T] {
	if sm == nil {
		sb.b.errs = append(sb.b.errs, fmt.Errorf("state %v: nil sub-machine", sb.def.id))
		return sb
	}
	sb.def.sub = sm
	return sb
}

// TransitionBuilder configures one transition.
type TransitionBuilder[C any, S comparable, E any, T comparable] struct {
	sb  *StateBuilder[C, S, E, T]
	def *transitionDef[C, S, E, T]
}

// TransitionTo exits the state and enters target.
func (tb *TransitionBuilder[C, S, E, T]) TransitionTo(target S) *TransitionBuilder[C, S, E, T] {
	tb.def.kind = transitionExternal
	tb.def.to = target
	if target == tb.def.from {
		tb.def.kind = transitionSelf
	}
	return tb
}

// SelfTransition exits and re-enters the state, restarting its timers.
func (tb *TransitionBuilder[C, S, E, T]) SelfTransition() *TransitionBuilder[C, S, E, T] {
	tb.def.kind = transitionSelf
	tb.def.to = tb.def.from
	return tb
}

// InternalTransition runs the action without leaving the state.
func (tb *TransitionBuilder[C, S, E, T]) InternalTransition() *TransitionBuilder[C, S, E, T] {
	tb.def.kind = transitionInternal
	tb.def.to = tb.def.from
	return tb
}

// Guard sets the guard.
func (tb *TransitionBuilder[C, S, E, T]) Guard(g Guard[C, E]) *TransitionBuilder[C, S, E, T] {
	tb.def.guard = g
	return tb
}

// Action sets the transition action.
func (tb *TransitionBuilder[C, S, E, T]) Action(fn TransitionAction[C, E, T]) *TransitionBuilder[C, S, E, T] {
	tb.def.action = fn
	return tb
}

// State returns to the owning state, for chaining.
func (tb *TransitionBuilder[C, S, E, T]) State() *StateBuilder[C, S, E, T] { return tb.sb }
