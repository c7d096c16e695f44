package finny

import (
	"fmt"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// Snapshot is a point-in-time, read-only record of an instance. Context holds
// a deep copy of the user context, so a snapshot may be handed to another
// goroutine.
type Snapshot struct {
	ID        string           `json:"id,omitempty" yaml:"id,omitempty"`
	Machine   string           `json:"machine" yaml:"machine"`
	Version   string           `json:"version" yaml:"version"`
	Regions   []RegionSnapshot `json:"regions" yaml:"regions"`
	Timers    []string         `json:"timers,omitempty" yaml:"timers,omitempty"`
	Queued    int              `json:"queued" yaml:"queued"`
	Context   any              `json:"context,omitempty" yaml:"context,omitempty"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
}

// RegionSnapshot records the state of one region.
type RegionSnapshot struct {
	Region     int       `json:"region" yaml:"region"`
	State      string    `json:"state" yaml:"state"`
	SubMachine *Snapshot `json:"sub_machine,omitempty" yaml:"sub_machine,omitempty"`
}

// Active returns the state names of the snapshot, sub-machine states qualified
// by their host state, e.g. "Running" and "Running.Child".
func (s Snapshot) Active() []string {
	var out []string
	for _, r := range s.Regions {
		out = append(out, r.State)
		if r.SubMachine != nil {
			for _, child := range r.SubMachine.Active() {
				out = append(out, r.State+"."+child)
			}
		}
	}
	return out
}

func (b *Backend[C, S, E, T]) snapshot() (Snapshot, error) {
	var ctx C
	if err := deepcopy.Copy(&ctx, b.context); err != nil {
		return Snapshot{}, fmt.Errorf("copy context of %s: %w", b.schema.name, err)
	}
	snap := Snapshot{
		Machine:   b.schema.name,
		Version:   b.schema.Version(),
		Context:   ctx,
		Timestamp: time.Now().UTC(),
	}
	for r, slot := range b.regions {
		rs := RegionSnapshot{Region: r, State: fmt.Sprint(slot.state)}
		if slot.sub != nil {
			sub, err := slot.sub.snapshot()
			if err != nil {
				return Snapshot{}, err
			}
			rs.SubMachine = &sub
		}
		snap.Regions = append(snap.Regions, rs)
	}
	for _, id := range b.LiveTimers() {
		snap.Timers = append(snap.Timers, fmt.Sprint(id))
	}
	return snap, nil
}

// Snapshot records the instance.
func (f *Frontend[C, S, E, T]) Snapshot() (Snapshot, error) {
	snap, err := f.backend.snapshot()
	if err != nil {
		return Snapshot{}, err
	}
	snap.ID = f.id
	snap.Queued = f.queue.Len()
	return snap, nil
}

// Describe returns the description of the frontend's schema, with its version.
func (f *Frontend[C, S, E, T]) Describe() Description {
	d := f.backend.schema.Describe()
	d.Version = f.backend.schema.Version()
	return d
}
