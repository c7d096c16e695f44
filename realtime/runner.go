package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matiu2/finny"
)

// ErrBatchFull is returned by Send when the tick batch is at capacity.
var ErrBatchFull = fmt.Errorf("%w: tick batch", finny.ErrQueueFull)

// Config configures a Runner.
type Config struct {
	TickRate         time.Duration // default 60 FPS
	MaxEventsPerTick int           // default 1000
	Clock            clock.Clock   // default wall clock
	Logger           *zap.SugaredLogger
}

// Runner owns a frontend and drives it from a tick loop.
type Runner[C any, S comparable, E any, T comparable] struct {
	mu  sync.Mutex
	fsm *finny.Frontend[C, S, E, T]

	batchMu     sync.Mutex
	batch       []EventWithMeta[E]
	maxBatch    int
	sequenceNum uint64
	tickNum     uint64

	tickRate  time.Duration
	clock     clock.Clock
	log       *zap.SugaredLogger
	lifecycle *fsm.FSM
	sources   []EventSource[E]

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewRunner wraps f. The runner takes ownership of f; touch it only through Do.
func NewRunner[C any, S comparable, E any, T comparable](f *finny.Frontend[C, S, E, T], cfg Config) *Runner[C, S, E, T] {
	if cfg.MaxEventsPerTick <= 0 {
		cfg.MaxEventsPerTick = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	log := cfg.Logger.With("instance", f.ID())
	return &Runner[C, S, E, T]{
		fsm:       f,
		batch:     make([]EventWithMeta[E], 0, cfg.MaxEventsPerTick),
		maxBatch:  cfg.MaxEventsPerTick,
		tickRate:  cfg.TickRate,
		clock:     cfg.Clock,
		log:       log,
		lifecycle: newLifecycle(log),
	}
}

// Attach reads events from src while the runner is running. Sources must be
// attached before Start.
func (r *Runner[C, S, E, T]) Attach(src EventSource[E]) error {
	if r.lifecycle.Current() != LifecycleStopped {
		return fmt.Errorf("attach source: runner is %s", r.lifecycle.Current())
	}
	r.sources = append(r.sources, src)
	return nil
}

// Start enters the machine's initial states, if not done yet, and starts the
// tick loop and the attached sources. Cancelling ctx stops them; call Stop to
// wait for them.
func (r *Runner[C, S, E, T]) Start(ctx context.Context) error {
	if err := r.lifecycle.Event(ctx, eventStart); err != nil {
		return fmt.Errorf("start runner: %w", err)
	}
	r.mu.Lock()
	err := r.fsm.Start()
	r.mu.Unlock()
	if err != nil {
		_ = r.lifecycle.Event(ctx, eventStop)
		_ = r.lifecycle.Event(ctx, eventStopped)
		return fmt.Errorf("start machine: %w", err)
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.group, ctx = errgroup.WithContext(ctx)
	ticker := r.clock.Ticker(r.tickRate)
	r.group.Go(func() error {
		defer ticker.Stop()
		r.tickLoop(ctx, ticker)
		return nil
	})
	for _, src := range r.sources {
		r.group.Go(func() error { return r.forward(ctx, src) })
	}
	r.log.Infow("Runner started", "tick_rate", r.tickRate, "sources", len(r.sources))
	return nil
}

// Stop stops the tick loop and the sources and waits for them. Events still
// in the batch are kept for a later Tick or Start.
func (r *Runner[C, S, E, T]) Stop() error {
	ctx := context.Background()
	if err := r.lifecycle.Event(ctx, eventStop); err != nil {
		return fmt.Errorf("stop runner: %w", err)
	}
	r.cancel()
	err := r.group.Wait()
	if lerr := r.lifecycle.Event(ctx, eventStopped); lerr != nil {
		err = errors.Join(err, lerr)
	}
	r.log.Infow("Runner stopped", "ticks", r.TickNumber())
	return err
}

// Lifecycle returns stopped, running or stopping.
func (r *Runner[C, S, E, T]) Lifecycle() string {
	return r.lifecycle.Current()
}

func (r *Runner[C, S, E, T]) tickLoop(ctx context.Context, ticker *clock.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.safeTick()
		}
	}
}

func (r *Runner[C, S, E, T]) safeTick() {
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorw("Recovered from panic in tick", "panic", p, "tick", r.TickNumber())
		}
	}()
	if err := r.Tick(); err != nil {
		r.log.Warnw("Tick completed with errors", "error", err)
	}
}

func (r *Runner[C, S, E, T]) forward(ctx context.Context, src EventSource[E]) error {
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Send(ev); err != nil {
				r.log.Warnw("Dropped event from source", "event", ev, "error", err)
			}
		}
	}
}

// Send queues ev for the next tick with priority zero.
func (r *Runner[C, S, E, T]) Send(ev E) error {
	return r.SendWithPriority(ev, 0)
}

// SendWithPriority queues ev for the next tick. Within a tick, higher
// priorities are dispatched first.
func (r *Runner[C, S, E, T]) SendWithPriority(ev E, priority int) error {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	if len(r.batch) >= r.maxBatch {
		return ErrBatchFull
	}
	r.batch = append(r.batch, EventWithMeta[E]{
		Event:       ev,
		SequenceNum: r.sequenceNum,
		Priority:    priority,
	})
	r.sequenceNum++
	return nil
}

// TickNumber returns the number of completed ticks.
func (r *Runner[C, S, E, T]) TickNumber() uint64 {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.tickNum
}

// Do runs fn with exclusive access to the frontend.
func (r *Runner[C, S, E, T]) Do(fn func(f *finny.Frontend[C, S, E, T]) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.fsm)
}

// Snapshot records the frontend between ticks.
func (r *Runner[C, S, E, T]) Snapshot() (finny.Snapshot, error) {
	var snap finny.Snapshot
	err := r.Do(func(f *finny.Frontend[C, S, E, T]) error {
		var err error
		snap, err = f.Snapshot()
		return err
	})
	return snap, err
}
