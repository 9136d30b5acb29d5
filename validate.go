package botflow

import "fmt"

// MaxFinalNodes is the heuristic threshold above which a flow is flagged as
// probably malformed. Exceeding it is a warning, not a hard rule.
const MaxFinalNodes = 3

// ValidationReport is the outcome of a pre-deploy structural check.
// Errors block a deploy; Warnings only ask for confirmation.
type ValidationReport struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the flow can be deployed without fixes.
func (r ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

// Validate runs the pre-deploy structural checks over a flow. It never runs
// implicitly during editing. Violations are reported in node order so the
// output is stable for the same flow.
func Validate(f *Flow) ValidationReport {
	var r ValidationReport

	finals := 0
	for _, n := range f.Nodes {
		if n.Kind == KindFinal {
			finals++
		}
	}
	if finals > MaxFinalNodes {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("%d final nodes detected; this may indicate a malformed flow", finals))
	}

	for _, n := range f.Nodes {
		if n.Kind != KindFinal {
			if !f.HasOutgoingEdge(n.ID) {
				r.Errors = append(r.Errors,
					fmt.Sprintf("node %s (%s) has no outgoing connection", n.ID, n.Kind))
			}
			continue
		}

		// Final nodes must be isolated sinks. The editor should make these
		// states unreachable, but they are re-checked here because bulk
		// replacement (SetNodes/SetEdges) bypasses the editor.
		for _, e := range f.Edges {
			if e.Target == n.ID {
				if src := f.NodeByID(e.Source); src != nil && src.Kind == KindFinal {
					r.Errors = append(r.Errors,
						fmt.Sprintf("final node %s is connected to final node %s; final nodes must be terminal", e.Source, n.ID))
				}
			}
		}
		if d := f.OutDegree(n.ID); d > 0 {
			r.Errors = append(r.Errors,
				fmt.Sprintf("final node %s has %d outgoing connections; final nodes cannot have any", n.ID, d))
		}
	}

	return r
}
