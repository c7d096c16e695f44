// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/matiu2/finny"
)

// Counter is the context of every generated machine.
type Counter struct {
	N int `yaml:"n"`
}

// Schema is the schema shape every generator returns.
type Schema = finny.Schema[Counter, string, string, string]

func newBuilder(name string) *finny.Builder[Counter, string, string, string] {
	return finny.NewBuilder[Counter, string, string, string](name, finny.WithEventKey(finny.EventValueKey[string]))
}

func count(_ string, ec *finny.EventContext[Counter, string, string]) {
	ec.Context.N++
}

func must(s *Schema, err error) *Schema {
	if err != nil {
		panic(err)
	}
	return s
}

// GenFlat creates a machine with n states cycling via "tick" events.
func GenFlat(n int) *Schema {
	if n < 1 {
		n = 1
	}
	b := newBuilder(fmt.Sprintf("flat_%d", n))
	b.InitialState("s0")
	for i := 0; i < n; i++ {
		b.State(fmt.Sprintf("s%d", i)).On("tick").TransitionTo(fmt.Sprintf("s%d", (i+1)%n)).Action(count)
	}
	return must(b.Build())
}

// GenRegions creates a machine with n regions, each flipping between two
// states on "tick".
func GenRegions(n int) *Schema {
	if n < 1 {
		n = 1
	}
	b := newBuilder(fmt.Sprintf("regions_%d", n))
	initial := make([]string, n)
	for r := 0; r < n; r++ {
		a, z := fmt.Sprintf("r%d.a", r), fmt.Sprintf("r%d.b", r)
		initial[r] = a
		b.State(a).On("tick").TransitionTo(z).Action(count)
		b.State(z).On("tick").TransitionTo(a).Action(count)
	}
	b.InitialStates(initial...)
	return must(b.Build())
}

// GenNested creates depth machines, each hosting the next as a sub-machine.
// "tick" is delegated all the way down to a flipping leaf machine.
func GenNested(depth int) *Schema {
	if depth < 1 {
		depth = 1
	}
	leaf := newBuilder("level_0")
	leaf.InitialState("a")
	leaf.State("a").On("tick").TransitionTo("b").Action(count)
	leaf.State("b").On("tick").TransitionTo("a").Action(count)
	child := must(leaf.Build())

	conv := finny.Conversion[string, string, string, string]{
		ToChild:         func(e string) (string, bool) { return e, true },
		FromChild:       func(e string) string { return e },
		TimerToParent:   func(id string) string { return id },
		TimerFromParent: func(id string) (string, bool) { return id, true },
	}
	for level := 1; level < depth; level++ {
		b := newBuilder(fmt.Sprintf("level_%d", level))
		b.InitialState("host")
		b.State("host").SubMachine(finny.Sub(child, func(*Counter) Counter { return Counter{} }, conv))
		child = must(b.Build())
	}
	return child
}

// GenWideTransitions creates one state with numTransitions guarded handlers
// cycling through targets; only "tick" is accepted by its guard.
func GenWideTransitions(numTransitions int) *Schema {
	if numTransitions < 1 {
		numTransitions = 1
	}
	b := newBuilder(fmt.Sprintf("wide_%d", numTransitions))
	b.InitialState("main")
	main := b.State("main")
	for i := 0; i < numTransitions; i++ {
		ev := fmt.Sprintf("ev%d", i)
		if i == 0 {
			ev = "tick"
		}
		target := fmt.Sprintf("target%d", i)
		main.On(ev).TransitionTo(target).Guard(func(e string, _ *Counter) bool { return e == "tick" })
		b.State(target).On("tick").TransitionTo("main")
	}
	return must(b.Build())
}

// Start creates and starts a frontend with no timers.
func Start(s *Schema) *finny.Frontend[Counter, string, string, string] {
	f, err := finny.NewWith(s, Counter{}, nil, nil, nil)
	if err != nil {
		panic(err)
	}
	if err := f.Start(); err != nil {
		panic(err)
	}
	return f
}

// GenSnapshotYAML generates YAML bytes for a snapshot of the given machine
// after one tick.
func GenSnapshotYAML(s *Schema) []byte {
	f := Start(s)
	if err := f.Enqueue("tick"); err != nil {
		panic(err)
	}
	if err := f.DriveUntilEmpty(); err != nil {
		panic(err)
	}
	snap, err := f.Snapshot()
	if err != nil {
		panic(err)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		panic(err)
	}
	return data
}
