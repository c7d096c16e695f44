// Package primitives provides the foundational, zero-dependency containers
// behind the engine's built-in capabilities.
//
// Core invariants:
//   - Ring is a strict FIFO with a fixed capacity and no allocation after construction
//   - DeadlineHeap pops entries ordered by deadline, then by insertion sequence
//
// Neither type is safe for concurrent use; callers confine them to one machine.
package primitives
