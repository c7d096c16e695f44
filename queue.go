package finny

import (
	"fmt"

	"github.com/matiu2/finny/internal/primitives"
)

// Queue is the FIFO capability events are enqueued into and dispatched from.
// Insertion order is the dispatch order.
type Queue[E any, T comparable] interface {
	Enqueue(ev Event[E, T]) error
	Dequeue() (Event[E, T], bool)
	Len() int
}

// QueueVec is an unbounded, growable queue.
type QueueVec[E any, T comparable] struct {
	items []Event[E, T]
	head  int
}

// NewQueueVec creates an empty growable queue.
func NewQueueVec[E any, T comparable]() *QueueVec[E, T] {
	return &QueueVec[E, T]{}
}

func (q *QueueVec[E, T]) Enqueue(ev Event[E, T]) error {
	q.items = append(q.items, ev)
	return nil
}

func (q *QueueVec[E, T]) Dequeue() (Event[E, T], bool) {
	if q.head == len(q.items) {
		return Event[E, T]{}, false
	}
	ev := q.items[q.head]
	q.items[q.head] = Event[E, T]{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return ev, true
}

func (q *QueueVec[E, T]) Len() int { return len(q.items) - q.head }

// QueueArray is a bounded queue that never grows after construction.
type QueueArray[E any, T comparable] struct {
	ring *primitives.Ring[Event[E, T]]
}

// NewQueueArray creates a queue holding at most capacity events.
func NewQueueArray[E any, T comparable](capacity int) *QueueArray[E, T] {
	return &QueueArray[E, T]{ring: primitives.NewRing[Event[E, T]](capacity)}
}

func (q *QueueArray[E, T]) Enqueue(ev Event[E, T]) error {
	if !q.ring.Push(ev) {
		return fmt.Errorf("enqueue %v (capacity %d): %w", ev, q.ring.Cap(), ErrQueueFull)
	}
	return nil
}

func (q *QueueArray[E, T]) Dequeue() (Event[E, T], bool) { return q.ring.Pop() }

func (q *QueueArray[E, T]) Len() int { return q.ring.Len() }

// QueueSub lets a sub-machine enqueue into its parent's queue. Child events are
// converted to the parent's types and share the parent's FIFO ordering.
type QueueSub[PE any, PT comparable, CE any, CT comparable] struct {
	parent    Queue[PE, PT]
	fromChild func(CE) PE
	timerUp   func(CT) PT
}

// NewQueueSub adapts parent to the child's event and timer types.
func NewQueueSub[PE any, PT comparable, CE any, CT comparable](parent Queue[PE, PT], fromChild func(CE) PE, timerUp func(CT) PT) *QueueSub[PE, PT, CE, CT] {
	return &QueueSub[PE, PT, CE, CT]{parent: parent, fromChild: fromChild, timerUp: timerUp}
}

func (q *QueueSub[PE, PT, CE, CT]) Enqueue(ev Event[CE, CT]) error {
	if id, ok := ev.Timer(); ok {
		if q.timerUp == nil {
			return fmt.Errorf("enqueue timer %v: %w", id, ErrMissingConversion)
		}
		return q.parent.Enqueue(TimerEvent[PE](q.timerUp(id)))
	}
	e, _ := ev.Event()
	if q.fromChild == nil {
		return fmt.Errorf("enqueue %v: %w", e, ErrMissingConversion)
	}
	return q.parent.Enqueue(NewEvent[PE, PT](q.fromChild(e)))
}

// Dequeue is not available to sub-machines; only the top-level frontend drains the queue.
func (q *QueueSub[PE, PT, CE, CT]) Dequeue() (Event[CE, CT], bool) {
	return Event[CE, CT]{}, false
}

// Len reports the length of the shared parent queue.
func (q *QueueSub[PE, PT, CE, CT]) Len() int { return q.parent.Len() }
