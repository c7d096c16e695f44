package finny

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Frontend is the handle callers drive a machine through. It bundles one
// Backend with the queue, instrumentation and timers chosen at construction.
//
// A Frontend is not safe for concurrent use. Confine it to one goroutine or
// guard it externally, as realtime.Runner does.
type Frontend[C any, S comparable, E any, T comparable] struct {
	id          string
	backend     *Backend[C, S, E, T]
	queue       Queue[E, T]
	inspect     Inspect
	timers      Timers[T]
	started     bool
	dispatching bool
}

// Option configures a Frontend.
type Option func(*frontendOptions)

type frontendOptions struct {
	id    string
	clock clock.Clock
}

// WithID sets the instance id reported in snapshots. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(o *frontendOptions) { o.id = id }
}

// WithClock sets the clock of the default timers created by New.
func WithClock(clk clock.Clock) Option {
	return func(o *frontendOptions) { o.clock = clk }
}

// NewWith builds a frontend from explicitly chosen capabilities. A nil queue
// becomes a QueueVec, a nil inspect InspectNull and nil timers TimersNull.
func NewWith[C any, S comparable, E any, T comparable](
	schema *Schema[C, S, E, T],
	ctx C,
	queue Queue[E, T],
	inspect Inspect,
	timers Timers[T],
	opts ...Option,
) (*Frontend[C, S, E, T], error) {
	if schema == nil {
		return nil, errors.New("nil schema")
	}
	o := frontendOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if queue == nil {
		queue = NewQueueVec[E, T]()
	}
	if inspect == nil {
		inspect = InspectNull{}
	}
	if timers == nil {
		timers = TimersNull[T]{}
	}
	return &Frontend[C, S, E, T]{
		id:      o.id,
		backend: NewBackend(schema, ctx),
		queue:   queue,
		inspect: inspect,
		timers:  timers,
	}, nil
}

// New builds a frontend with a growable queue, no instrumentation and
// clock-driven timers.
func New[C any, S comparable, E any, T comparable](schema *Schema[C, S, E, T], ctx C, opts ...Option) (*Frontend[C, S, E, T], error) {
	o := frontendOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return NewWith(schema, ctx, NewQueueVec[E, T](), InspectNull{}, NewTimersStd[T](o.clock), opts...)
}

func (f *Frontend[C, S, E, T]) env() dispatchEnv[E, T] {
	return dispatchEnv[E, T]{queue: f.queue, timers: f.timers, inspect: f.inspect}
}

// Start enters the initial state of every region, running entry actions and
// starting entry timers. Starting twice is a no-op.
func (f *Frontend[C, S, E, T]) Start() error {
	if f.dispatching {
		return ErrReentrantDispatch
	}
	if f.started {
		return nil
	}
	f.dispatching = true
	defer func() { f.dispatching = false }()

	env := f.env()
	insp := env.inspect.NewEvent(f.backend.schema.name, "Start")
	env.inspect = insp
	f.backend.start(env)
	insp.EventDone()
	f.started = true
	return nil
}

// Enqueue adds ev to the queue. It is dispatched by a later Drive.
func (f *Frontend[C, S, E, T]) Enqueue(ev E) error {
	return f.queue.Enqueue(NewEvent[E, T](ev))
}

// Drive dispatches exactly one queued event. It reports false when the queue was empty.
func (f *Frontend[C, S, E, T]) Drive() (bool, error) {
	if f.dispatching {
		return false, ErrReentrantDispatch
	}
	if !f.started {
		return false, ErrNotStarted
	}
	ev, ok := f.queue.Dequeue()
	if !ok {
		return false, nil
	}
	f.dispatching = true
	defer func() { f.dispatching = false }()
	return true, f.backend.dispatch(f.env(), ev)
}

// DriveUntilEmpty drives until the queue is empty, including events enqueued
// by the actions it runs. It stops at the first dispatch error.
func (f *Frontend[C, S, E, T]) DriveUntilEmpty() error {
	for {
		ok, err := f.Drive()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// DispatchTimerEvents polls the timers capability and enqueues one timer event
// per triggered timer, in trigger order. It returns how many were enqueued.
func (f *Frontend[C, S, E, T]) DispatchTimerEvents() (int, error) {
	n := 0
	for {
		id, ok := f.timers.GetTriggeredTimer()
		if !ok {
			return n, nil
		}
		if err := f.queue.Enqueue(TimerEvent[E](id)); err != nil {
			return n, fmt.Errorf("enqueue timer %v: %w", id, err)
		}
		n++
	}
}

// ID returns the instance id.
func (f *Frontend[C, S, E, T]) ID() string { return f.id }

// Started reports whether Start has run.
func (f *Frontend[C, S, E, T]) Started() bool { return f.started }

// Backend exposes the underlying instance.
func (f *Frontend[C, S, E, T]) Backend() *Backend[C, S, E, T] { return f.backend }

// Context returns the user context.
func (f *Frontend[C, S, E, T]) Context() *C { return f.backend.Context() }

// State returns the current state of region.
func (f *Frontend[C, S, E, T]) State(region RegionID) S { return f.backend.State(region) }

// States returns the current state of every region.
func (f *Frontend[C, S, E, T]) States() []S { return f.backend.States() }

// QueueLen returns the number of queued events.
func (f *Frontend[C, S, E, T]) QueueLen() int { return f.queue.Len() }
