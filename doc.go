// Package finny runs hierarchical, region-based finite state machines.
//
// A machine is described once by a Schema, built with NewBuilder: its regions
// and their initial states, the transition table with guards and actions,
// state entry timers and nested sub-machines. A Frontend binds a Schema to a
// context value and to three capabilities chosen by the caller:
//
//   - a Queue the events wait in (QueueVec, QueueArray, diskqueue.Queue)
//   - a Timers implementation (TimersStd, TimersNull)
//   - an Inspect observer (InspectNull, Chain, the inspect/ sinks)
//
// Execution is single threaded and cooperative. Enqueue adds an event, Drive
// dispatches exactly one and DriveUntilEmpty settles the machine. Actions may
// enqueue events but never dispatch them; they are picked up by a later drive
// cycle. Timers are polled with DispatchTimerEvents and their triggers travel
// through the queue like any other event.
//
//	b := finny.NewBuilder[Ctx, State, Event, Timer]("worker")
//	b.InitialState(Idle)
//	b.State(Idle).On(Start{}).TransitionTo(Running)
//	b.State(Running).On(Stop{}).TransitionTo(Idle)
//	schema, err := b.Build()
//
//	fsm, err := finny.New(schema, Ctx{})
//	fsm.Start()
//	fsm.Enqueue(Start{})
//	fsm.DriveUntilEmpty()
//
// Sub-machines are hosted by a parent state through Sub and a Conversion
// between the parent's and the child's event and timer types. The child shares
// the parent's queue and timers; its timers are polled through the parent's
// capability and routed back down with Conversion.TimerFromParent.
package finny
