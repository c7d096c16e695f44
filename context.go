package finny

// RegionID identifies one region of a machine. Regions are numbered in the
// order their initial states were declared, starting at zero.
type RegionID int

// EventContext is handed to actions. It borrows the machine's context and
// queue for the duration of a single action and must not be retained.
type EventContext[C any, E any, T comparable] struct {
	// Context is the machine's user data, exclusively owned by the running dispatch.
	Context *C
	// Region is the region the action runs in.
	Region RegionID

	queue Queue[E, T]
}

// Enqueue adds ev to the machine's queue. It is dispatched on a later drive
// cycle, never during the current one.
func (c *EventContext[C, E, T]) Enqueue(ev E) error {
	return c.queue.Enqueue(NewEvent[E, T](ev))
}
