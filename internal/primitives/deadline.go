package primitives

import (
	"container/heap"
	"time"
)

// Deadline is one scheduled entry of a DeadlineHeap.
type Deadline[K comparable] struct {
	Key K
	At  time.Time
	seq uint64
}

// DeadlineHeap orders keys by deadline. Ties keep insertion order. Each key is
// scheduled at most once; pushing a scheduled key moves it.
type DeadlineHeap[K comparable] struct {
	entries deadlineEntries[K]
	seq     uint64
}

// Push schedules key at the given time, replacing its previous deadline.
func (h *DeadlineHeap[K]) Push(key K, at time.Time) {
	h.seq++
	if i, ok := h.entries.index[key]; ok {
		h.entries.items[i].At = at
		h.entries.items[i].seq = h.seq
		heap.Fix(&h.entries, i)
		return
	}
	heap.Push(&h.entries, Deadline[K]{Key: key, At: at, seq: h.seq})
}

// Remove unschedules key. It reports whether the key was scheduled.
func (h *DeadlineHeap[K]) Remove(key K) bool {
	i, ok := h.entries.index[key]
	if !ok {
		return false
	}
	heap.Remove(&h.entries, i)
	return true
}

// PopDue removes and returns the earliest entry whose deadline is not after now.
func (h *DeadlineHeap[K]) PopDue(now time.Time) (Deadline[K], bool) {
	if len(h.entries.items) == 0 || h.entries.items[0].At.After(now) {
		return Deadline[K]{}, false
	}
	return heap.Pop(&h.entries).(Deadline[K]), true
}

// Len returns the number of scheduled keys.
func (h *DeadlineHeap[K]) Len() int { return len(h.entries.items) }

type deadlineEntries[K comparable] struct {
	items []Deadline[K]
	index map[K]int
}

func (d deadlineEntries[K]) Len() int { return len(d.items) }

func (d deadlineEntries[K]) Less(i, j int) bool {
	if d.items[i].At.Equal(d.items[j].At) {
		return d.items[i].seq < d.items[j].seq
	}
	return d.items[i].At.Before(d.items[j].At)
}

func (d deadlineEntries[K]) Swap(i, j int) {
	d.items[i], d.items[j] = d.items[j], d.items[i]
	d.index[d.items[i].Key] = i
	d.index[d.items[j].Key] = j
}

func (d *deadlineEntries[K]) Push(x any) {
	if d.index == nil {
		d.index = make(map[K]int)
	}
	e := x.(Deadline[K])
	d.index[e.Key] = len(d.items)
	d.items = append(d.items, e)
}

func (d *deadlineEntries[K]) Pop() any {
	n := len(d.items)
	e := d.items[n-1]
	d.items[n-1] = Deadline[K]{}
	d.items = d.items[:n-1]
	delete(d.index, e.Key)
	return e
}
