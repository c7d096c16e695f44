package primitives

// Ring is a fixed-capacity FIFO buffer.
type Ring[V any] struct {
	items []V
	head  int
	size  int
}

// NewRing allocates a ring holding at most capacity items.
func NewRing[V any](capacity int) *Ring[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[V]{items: make([]V, capacity)}
}

// Push appends v. It reports false when the ring is full.
func (r *Ring[V]) Push(v V) bool {
	if r.size == len(r.items) {
		return false
	}
	r.items[(r.head+r.size)%len(r.items)] = v
	r.size++
	return true
}

// Pop removes the oldest item.
func (r *Ring[V]) Pop() (V, bool) {
	var zero V
	if r.size == 0 {
		return zero, false
	}
	v := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.size--
	return v, true
}

// Len returns the number of buffered items.
func (r *Ring[V]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[V]) Cap() int { return len(r.items) }
