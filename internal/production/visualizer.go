package production

import (
	"bytes"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/matiu2/finny"
)

// Visualizer renders machine descriptions.
type Visualizer struct{}

// ExportDOT generates Graphviz DOT source for d. Regions and sub-machines
// become clusters. active holds qualified state names as returned by
// finny.Snapshot.Active; those nodes are highlighted.
func (v *Visualizer) ExportDOT(d finny.Description, active []string) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Statechart {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)
	on := make(map[string]bool, len(active))
	for _, a := range active {
		on[a] = true
	}
	renderMachine(&buf, d, "", on, "  ")
	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the description to JSON.
func (v *Visualizer) ExportJSON(d finny.Description) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func qualify(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "." + id
}

func renderMachine(buf *bytes.Buffer, d finny.Description, prefix string, active map[string]bool, indent string) {
	byRegion := make(map[int][]finny.StateDescription)
	for _, s := range d.States {
		byRegion[s.Region] = append(byRegion[s.Region], s)
	}

	for _, r := range d.Regions {
		cluster := fmt.Sprintf("cluster_%s_r%d", sanitize(qualify(prefix, d.Name)), r.Region)
		fmt.Fprintf(buf, "%ssubgraph %s {\n", indent, cluster)
		fmt.Fprintf(buf, "%s  label=\"%s region %d\";\n", indent, d.Name, r.Region)
		start := qualify(prefix, fmt.Sprintf("__start_%d", r.Region))
		fmt.Fprintf(buf, "%s  \"%s\" [shape=point];\n", indent, start)
		for _, s := range byRegion[r.Region] {
			renderState(buf, s, prefix, active, indent+"  ")
		}
		fmt.Fprintf(buf, "%s}\n", indent)
		fmt.Fprintf(buf, "%s\"%s\" -> \"%s\";\n", indent, start, qualify(prefix, r.Initial))
	}

	for _, t := range d.Transitions {
		from, to := qualify(prefix, t.From), qualify(prefix, t.To)
		attrs := fmt.Sprintf(`label="%s"`, edgeLabel(t))
		if t.Kind == "internal" {
			attrs += " style=dashed"
		}
		fmt.Fprintf(buf, "%s\"%s\" -> \"%s\" [%s];\n", indent, from, to, attrs)
	}
}

func renderState(buf *bytes.Buffer, s finny.StateDescription, prefix string, active map[string]bool, indent string) {
	id := qualify(prefix, s.ID)
	style := ""
	if active[id] {
		style = " style=filled fillcolor=lightgreen"
	}
	label := s.ID
	if len(s.Timers) > 0 {
		timers := append([]string(nil), s.Timers...)
		sort.Strings(timers)
		label += fmt.Sprintf("\\ntimers: %v", timers)
	}
	if s.SubMachine == nil {
		fmt.Fprintf(buf, "%s\"%s\" [label=\"%s\"%s];\n", indent, id, label, style)
		return
	}

	fmt.Fprintf(buf, "%ssubgraph cluster_%s {\n", indent, sanitize(id))
	fmt.Fprintf(buf, "%s  label=\"%s\";\n", indent, s.ID)
	if active[id] {
		fmt.Fprintf(buf, "%s  style=filled; fillcolor=orange;\n", indent)
	}
	fmt.Fprintf(buf, "%s  \"%s\" [label=\"%s\" shape=ellipse%s];\n", indent, id, label, style)
	renderMachine(buf, *s.SubMachine, id, active, indent+"  ")
	fmt.Fprintf(buf, "%s}\n", indent)
}

func edgeLabel(t finny.TransitionDescription) string {
	label := t.Event
	if t.Guarded {
		label += " [guard]"
	}
	if t.Action {
		label += " /"
	}
	return label
}

func sanitize(id string) string {
	out := []byte(id)
	for i, c := range out {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			out[i] = '_'
		}
	}
	return string(out)
}
