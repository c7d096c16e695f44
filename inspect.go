package finny

// Inspect observes dispatch. Every method must be safe to no-op.
//
// The For* and NewEvent methods return a narrowed handle scoped to a sub-machine,
// transition, timer or event; the engine drops the handle when the scope ends.
// Arguments are descriptive values (state and timer ids, events) so one handle
// can observe machines of different types.
type Inspect interface {
	NewEvent(machine string, event any) Inspect
	ForTransition(from, to any) Inspect
	ForSubMachine(name string) Inspect
	ForTimer(timer any) Inspect
	OnGuard(passed bool)
	OnStateEnter(state any)
	OnStateExit(state any)
	OnAction(action string)
	EventDone()
	OnError(msg string, err error)
	Info(msg string)
}

// InspectNull ignores everything.
type InspectNull struct{}

func (n InspectNull) NewEvent(string, any) Inspect  { return n }
func (n InspectNull) ForTransition(any, any) Inspect { return n }
func (n InspectNull) ForSubMachine(string) Inspect   { return n }
func (n InspectNull) ForTimer(any) Inspect           { return n }
func (InspectNull) OnGuard(bool)                     {}
func (InspectNull) OnStateEnter(any)                 {}
func (InspectNull) OnStateExit(any)                  {}
func (InspectNull) OnAction(string)                  {}
func (InspectNull) EventDone()                       {}
func (InspectNull) OnError(string, error)            {}
func (InspectNull) Info(string)                      {}

// InspectChain fans every notification out to each member, in order.
type InspectChain []Inspect

// Chain combines inspectors. Nil members are skipped; a single member is returned as is.
func Chain(members ...Inspect) Inspect {
	chain := make(InspectChain, 0, len(members))
	for _, m := range members {
		if m != nil {
			chain = append(chain, m)
		}
	}
	switch len(chain) {
	case 0:
		return InspectNull{}
	case 1:
		return chain[0]
	}
	return chain
}

func (c InspectChain) narrow(fn func(Inspect) Inspect) Inspect {
	out := make(InspectChain, len(c))
	for i, m := range c {
		out[i] = fn(m)
	}
	return out
}

func (c InspectChain) NewEvent(machine string, event any) Inspect {
	return c.narrow(func(i Inspect) Inspect { return i.NewEvent(machine, event) })
}

func (c InspectChain) ForTransition(from, to any) Inspect {
	return c.narrow(func(i Inspect) Inspect { return i.ForTransition(from, to) })
}

func (c InspectChain) ForSubMachine(name string) Inspect {
	return c.narrow(func(i Inspect) Inspect { return i.ForSubMachine(name) })
}

func (c InspectChain) ForTimer(timer any) Inspect {
	return c.narrow(func(i Inspect) Inspect { return i.ForTimer(timer) })
}

func (c InspectChain) OnGuard(passed bool) {
	for _, m := range c {
		m.OnGuard(passed)
	}
}

func (c InspectChain) OnStateEnter(state any) {
	for _, m := range c {
		m.OnStateEnter(state)
	}
}

func (c InspectChain) OnStateExit(state any) {
	for _, m := range c {
		m.OnStateExit(state)
	}
}

func (c InspectChain) OnAction(action string) {
	for _, m := range c {
		m.OnAction(action)
	}
}

func (c InspectChain) EventDone() {
	for _, m := range c {
		m.EventDone()
	}
}

func (c InspectChain) OnError(msg string, err error) {
	for _, m := range c {
		m.OnError(msg, err)
	}
}

func (c InspectChain) Info(msg string) {
	for _, m := range c {
		m.Info(msg)
	}
}
