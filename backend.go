package finny

// dispatchEnv bundles the capabilities a dispatch runs against. Sub-machines
// receive adapted copies built per call.
type dispatchEnv[E any, T comparable] struct {
	queue   Queue[E, T]
	timers  TimerScheduler[T]
	inspect Inspect
}

type regionSlot[S comparable, E any, T comparable] struct {
	state S
	sub   subInstance[E, T]
}

// Backend is a live machine instance: the user context, the current state of
// every region and the timer controllers. A sub-machine state embeds the
// child's Backend in its region slot while it is active.
type Backend[C any, S comparable, E any, T comparable] struct {
	schema  *Schema[C, S, E, T]
	context C
	regions []regionSlot[S, E, T]
	timers  map[T]*timerController[C, S, E, T]
}

// NewBackend creates an instance of schema positioned in its initial states.
// Entry actions run when the instance is started.
func NewBackend[C any, S comparable, E any, T comparable](schema *Schema[C, S, E, T], ctx C) *Backend[C, S, E, T] {
	b := &Backend[C, S, E, T]{
		schema:  schema,
		context: ctx,
		regions: make([]regionSlot[S, E, T], len(schema.initial)),
		timers:  make(map[T]*timerController[C, S, E, T], len(schema.timers)),
	}
	for r, s := range schema.initial {
		b.regions[r].state = s
	}
	for id, def := range schema.timers {
		b.timers[id] = &timerController[C, S, E, T]{def: def}
	}
	return b
}

// Schema returns the schema the instance runs.
func (b *Backend[C, S, E, T]) Schema() *Schema[C, S, E, T] { return b.schema }

// Context returns the user context.
func (b *Backend[C, S, E, T]) Context() *C { return &b.context }

// State returns the current state of region.
func (b *Backend[C, S, E, T]) State(region RegionID) S {
	return b.regions[region].state
}

// States returns the current state of every region.
func (b *Backend[C, S, E, T]) States() []S {
	out := make([]S, len(b.regions))
	for i, slot := range b.regions {
		out[i] = slot.state
	}
	return out
}

// SubStates returns the current states of the sub-machine hosted in region,
// or nil when the region is not in a sub-machine state.
func (b *Backend[C, S, E, T]) SubStates(region RegionID) []any {
	if int(region) < 0 || int(region) >= len(b.regions) || b.regions[region].sub == nil {
		return nil
	}
	return b.regions[region].sub.states()
}

// LiveTimers returns the ids of this machine's running timer instances, in
// declaration order of their states.
func (b *Backend[C, S, E, T]) LiveTimers() []T {
	var out []T
	for _, id := range b.schema.order {
		for _, td := range b.schema.states[id].timers {
			if _, ok := b.timers[td.id].live(); ok {
				out = append(out, td.id)
			}
		}
	}
	return out
}

// TimerInstance returns the running instance of timer id.
func (b *Backend[C, S, E, T]) TimerInstance(id T) (TimerInstance[T], bool) {
	tc, ok := b.timers[id]
	if !ok {
		return TimerInstance[T]{}, false
	}
	return tc.live()
}

func (b *Backend[C, S, E, T]) eventContext(env dispatchEnv[E, T], region RegionID) *EventContext[C, E, T] {
	return &EventContext[C, E, T]{Context: &b.context, Region: region, queue: env.queue}
}

// start enters the initial state of every region.
func (b *Backend[C, S, E, T]) start(env dispatchEnv[E, T]) {
	for r, s := range b.schema.initial {
		b.enter(env, RegionID(r), s)
	}
}

// stop exits the current state of every region, last region first.
func (b *Backend[C, S, E, T]) stop(env dispatchEnv[E, T]) {
	for r := len(b.regions) - 1; r >= 0; r-- {
		b.exit(env, RegionID(r))
	}
}

// enter replaces the region's state with a fresh target and runs its entry
// action, entry timers and, for sub-machine states, the child's initial entry.
func (b *Backend[C, S, E, T]) enter(env dispatchEnv[E, T], region RegionID, target S) {
	def := b.schema.states[target]
	slot := &b.regions[region]
	slot.state = target
	slot.sub = nil
	if def.sub != nil {
		slot.sub = def.sub.instantiate(&b.context)
	}

	env.inspect.OnStateEnter(target)
	if def.onEntry != nil {
		def.onEntry(b.eventContext(env, region))
	}
	for _, td := range def.timers {
		b.timers[td.id].executeOnEnter(env, &b.context)
	}
	if slot.sub != nil {
		slot.sub.start(env)
	}
}

// exit leaves the region's current state: the embedded sub-machine first, then
// the exit action, then the state's timers.
func (b *Backend[C, S, E, T]) exit(env dispatchEnv[E, T], region RegionID) {
	slot := &b.regions[region]
	def := b.schema.states[slot.state]
	if slot.sub != nil {
		slot.sub.stop(env)
		slot.sub = nil
	}

	env.inspect.OnStateExit(slot.state)
	if def.onExit != nil {
		def.onExit(b.eventContext(env, region))
	}
	for _, td := range def.timers {
		b.timers[td.id].executeOnExit(env)
	}
}
