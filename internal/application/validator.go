package application

import (
	"github.com/ahrav/go-loom/internal/domain"
)

// Validate checks the graph for structural and type correctness.
// Every check runs regardless of earlier failures so the returned
// *domain.ValidationError enumerates all violations at once:
//
//  1. Cycle detection: a cycle exists iff Kahn's algorithm cannot
//     consume every node.
//  2. Type compatibility: each edge's endpoint ports must declare the
//     same DataType.
//  3. Required-port coverage: each required input must be the target of
//     exactly one edge (explicit mode) or have a matching-named output
//     somewhere in the graph (legacy mode).
//  4. Duplicate binding: an input port targeted by more than one edge
//     is ambiguous.
//
// A graph that fails Validate must not be executed.
func (g *NodeGraph) Validate() error {
	verr := &domain.ValidationError{GraphName: g.name}

	if leftover := g.kahnResidue(); len(leftover) > 0 {
		verr.Add(&domain.CycleError{Nodes: leftover})
	}

	for _, e := range g.edges {
		from := g.nodes[e.FromNode]
		to := g.nodes[e.ToNode]
		fromPort, _ := findPort(from.OutputPorts(), e.FromPort)
		toPort, _ := findPort(to.InputPorts(), e.ToPort)
		if fromPort.Type != toPort.Type {
			verr.Add(&domain.TypeMismatchError{
				Edge:     e,
				Expected: toPort.Type,
				Actual:   fromPort.Type,
			})
		}
	}

	if g.LegacyAutoBind() {
		g.checkLegacyCoverage(verr)
	} else {
		g.checkExplicitCoverage(verr)
	}

	if verr.HasViolations() {
		return verr
	}
	return nil
}

// checkExplicitCoverage verifies required-port coverage and binding
// uniqueness in explicit-edge mode.
func (g *NodeGraph) checkExplicitCoverage(verr *domain.ValidationError) {
	for _, id := range g.order {
		for _, port := range g.nodes[id].InputPorts() {
			bound := len(g.incomingEdges(id, port.Name))
			switch {
			case bound == 0 && port.Required:
				verr.Add(&domain.UnboundPortError{NodeID: id, Port: port.Name})
			case bound > 1:
				verr.Add(&domain.DuplicateBindingError{NodeID: id, Port: port.Name})
			}
		}
	}
}

// checkLegacyCoverage verifies that every required input port has a
// matching-named output somewhere else in the graph. Legacy mode binds
// against the whole pool, so a name match on any other node suffices;
// the same matches feed flowEdges, which sequences producers before
// their consumers. Type mismatches across a name match are caught by
// the runtime guard when inputs are gathered.
func (g *NodeGraph) checkLegacyCoverage(verr *domain.ValidationError) {
	for _, id := range g.order {
		for _, port := range g.nodes[id].InputPorts() {
			if !port.Required {
				continue
			}
			if !g.hasMatchingOutput(id, port.Name) {
				verr.Add(&domain.UnboundPortError{NodeID: id, Port: port.Name})
			}
		}
	}
}

// hasMatchingOutput reports whether any node other than exclude declares
// an output port with the given name.
func (g *NodeGraph) hasMatchingOutput(exclude, name string) bool {
	for _, id := range g.order {
		if id == exclude {
			continue
		}
		if _, ok := findPort(g.nodes[id].OutputPorts(), name); ok {
			return true
		}
	}
	return false
}
