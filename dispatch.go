package finny

// dispatch runs one event to completion against the instance.
//
// Plain events visit every region in order. A transition declared by the
// region's current state wins; otherwise a sub-machine state delegates the
// event to its child; otherwise the event is dropped for that region. Guard
// rejection and unhandled events are not errors.
func (b *Backend[C, S, E, T]) dispatch(env dispatchEnv[E, T], ev Event[E, T]) error {
	insp := env.inspect.NewEvent(b.schema.name, ev)
	defer insp.EventDone()
	env.inspect = insp

	if id, ok := ev.Timer(); ok {
		return b.dispatchTimer(env, id, ev)
	}

	e, _ := ev.Event()
	key := b.schema.key(e)
	handled := false
	for r := range b.regions {
		region := RegionID(r)
		slot := &b.regions[r]
		def := b.schema.states[slot.state]

		if t, ok := def.transitions[key]; ok {
			handled = true
			b.transition(env, region, t, e)
			continue
		}
		if slot.sub == nil {
			continue
		}
		delegated, err := slot.sub.dispatch(env, ev)
		if err != nil {
			insp.OnError("Sub-machine dispatch failed", err)
			return &DispatchError{Machine: b.schema.name, State: slot.state, Err: err}
		}
		handled = handled || delegated
	}
	if !handled {
		insp.Info("No handler for the event.")
	}
	return nil
}

func (b *Backend[C, S, E, T]) transition(env dispatchEnv[E, T], region RegionID, t *transitionDef[C, S, E, T], ev E) {
	env.inspect = env.inspect.ForTransition(t.from, t.to)
	if t.guard != nil {
		passed := t.guard(ev, &b.context)
		env.inspect.OnGuard(passed)
		if !passed {
			return
		}
	}

	if t.kind == transitionInternal {
		b.runAction(env, region, t, ev)
		return
	}
	b.exit(env, region)
	b.runAction(env, region, t, ev)
	b.enter(env, region, t.to)
}

func (b *Backend[C, S, E, T]) runAction(env dispatchEnv[E, T], region RegionID, t *transitionDef[C, S, E, T], ev E) {
	if t.action == nil {
		return
	}
	env.inspect.OnAction(t.label)
	t.action(ev, b.eventContext(env, region))
}

// dispatchTimer routes a triggered timer to the controller that owns it, or
// to the active sub-machine that recognises the id.
func (b *Backend[C, S, E, T]) dispatchTimer(env dispatchEnv[E, T], id T, ev Event[E, T]) error {
	if tc, ok := b.timers[id]; ok {
		tc.executeTrigger(env, &b.context)
		return nil
	}
	for r := range b.regions {
		slot := &b.regions[r]
		if slot.sub == nil {
			continue
		}
		delegated, err := slot.sub.dispatch(env, ev)
		if err != nil {
			env.inspect.OnError("Sub-machine dispatch failed", err)
			return &DispatchError{Machine: b.schema.name, State: slot.state, Err: err}
		}
		if delegated {
			return nil
		}
	}
	env.inspect.ForTimer(id).OnError("Timer hasn't been started.", ErrTimerNotStarted)
	return nil
}
