package realtime

import (
	"errors"
	"fmt"

	"github.com/matiu2/finny"
)

// Tick runs one tick synchronously. The tick loop calls it at the tick rate;
// tests and fixed-step simulations may call it directly, with or without a
// running loop. Dispatch errors do not stop the tick; they are joined and
// returned.
func (r *Runner[C, S, E, T]) Tick() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.fsm.Started() {
		return finny.ErrNotStarted
	}

	events := r.collectEvents()
	sortEvents(events)

	var errs []error
	for _, ev := range events {
		if err := r.fsm.Enqueue(ev.Event); err != nil {
			errs = append(errs, fmt.Errorf("enqueue event %d: %w", ev.SequenceNum, err))
		}
	}
	if _, err := r.fsm.DispatchTimerEvents(); err != nil {
		errs = append(errs, err)
	}
	for {
		err := r.fsm.DriveUntilEmpty()
		if err == nil {
			break
		}
		errs = append(errs, err)
	}

	r.batchMu.Lock()
	r.tickNum++
	r.batchMu.Unlock()
	return errors.Join(errs...)
}

// collectEvents takes the batch and leaves an empty one in its place.
func (r *Runner[C, S, E, T]) collectEvents() []EventWithMeta[E] {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	events := r.batch
	r.batch = make([]EventWithMeta[E], 0, r.maxBatch)
	return events
}
