package finny

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
)

// Description is a plain-data view of a Schema, for export and visualisation.
type Description struct {
	Name        string                  `json:"name" yaml:"name"`
	Version     string                  `json:"version,omitempty" yaml:"version,omitempty"`
	Regions     []RegionDescription     `json:"regions" yaml:"regions"`
	States      []StateDescription      `json:"states" yaml:"states"`
	Transitions []TransitionDescription `json:"transitions" yaml:"transitions"`
}

// RegionDescription lists a region's initial state and member states.
type RegionDescription struct {
	Region  int      `json:"region" yaml:"region"`
	Initial string   `json:"initial" yaml:"initial"`
	States  []string `json:"states" yaml:"states"`
}

// StateDescription describes one state.
type StateDescription struct {
	ID         string       `json:"id" yaml:"id"`
	Region     int          `json:"region" yaml:"region"`
	OnEntry    bool         `json:"on_entry,omitempty" yaml:"on_entry,omitempty"`
	OnExit     bool         `json:"on_exit,omitempty" yaml:"on_exit,omitempty"`
	Timers     []string     `json:"timers,omitempty" yaml:"timers,omitempty"`
	SubMachine *Description `json:"sub_machine,omitempty" yaml:"sub_machine,omitempty"`
}

// TransitionDescription describes one row of the transition table.
type TransitionDescription struct {
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
	Event   string `json:"event" yaml:"event"`
	Kind    string `json:"kind" yaml:"kind"`
	Guarded bool   `json:"guarded,omitempty" yaml:"guarded,omitempty"`
	Action  bool   `json:"action,omitempty" yaml:"action,omitempty"`
}

// Describe returns the schema's description. The Version field is left empty;
// see Version.
func (s *Schema[C, S, E, T]) Describe() Description {
	d := Description{Name: s.name}
	for r, initial := range s.initial {
		d.Regions = append(d.Regions, RegionDescription{Region: r, Initial: fmt.Sprint(initial)})
	}
	for _, id := range s.order {
		def := s.states[id]
		sd := StateDescription{
			ID:      fmt.Sprint(id),
			Region:  int(def.region),
			OnEntry: def.onEntry != nil,
			OnExit:  def.onExit != nil,
		}
		for _, td := range def.timers {
			sd.Timers = append(sd.Timers, fmt.Sprint(td.id))
		}
		if def.sub != nil {
			sub := def.sub.Describe()
			sd.SubMachine = &sub
		}
		d.States = append(d.States, sd)
		if int(def.region) >= 0 && int(def.region) < len(d.Regions) {
			d.Regions[def.region].States = append(d.Regions[def.region].States, sd.ID)
		}
		for _, t := range def.order {
			d.Transitions = append(d.Transitions, TransitionDescription{
				From:    fmt.Sprint(t.from),
				To:      fmt.Sprint(t.to),
				Event:   t.label,
				Kind:    t.kind.String(),
				Guarded: t.guard != nil,
				Action:  t.action != nil,
			})
		}
	}
	return d
}

// Version identifies the schema. It is the pinned WithVersion value, or a hash
// of the description that changes whenever states, transitions or timers do.
func (s *Schema[C, S, E, T]) Version() string {
	if s.version != "" {
		return s.version
	}
	data, err := json.Marshal(s.Describe())
	if err != nil {
		return "unversioned"
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
