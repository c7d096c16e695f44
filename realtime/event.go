package realtime

import "sort"

// EventWithMeta adds sequencing metadata for deterministic ordering.
type EventWithMeta[E any] struct {
	Event       E
	SequenceNum uint64
	Priority    int
}

// sortEvents orders events by priority, higher first, then by send order.
func sortEvents[E any](events []EventWithMeta[E]) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Priority != events[j].Priority {
			return events[i].Priority > events[j].Priority
		}
		return events[i].SequenceNum < events[j].SequenceNum
	})
}
