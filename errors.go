package finny

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned by capabilities that cannot perform an operation,
	// such as TimersNull.
	ErrNotSupported = errors.New("operation not supported")
	// ErrTimerNotStarted is reported when a trigger arrives for a timer with no live instance.
	ErrTimerNotStarted = errors.New("timer hasn't been started")
	// ErrQueueFull is returned by bounded queues at capacity.
	ErrQueueFull = errors.New("event queue full")
	// ErrReentrantDispatch is returned when the frontend is driven from inside an action.
	ErrReentrantDispatch = errors.New("dispatch already in progress")
	// ErrNotStarted is returned when events are driven before Start.
	ErrNotStarted = errors.New("machine not started")
	// ErrInvalidSchema wraps every schema validation failure.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrMissingConversion is the structural failure of a sub-machine without a required conversion.
	ErrMissingConversion = errors.New("missing sub-machine conversion")
)

// DispatchError is a structural dispatch failure.
type DispatchError struct {
	Machine string
	State   any
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s in state %v: %v", e.Machine, e.State, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
