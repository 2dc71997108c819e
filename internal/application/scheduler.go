package application

import (
	"sort"

	"github.com/ahrav/go-loom/internal/domain"
)

// TopologicalOrder computes the execution order for the graph using
// Kahn's algorithm: repeatedly remove a zero-in-degree node, append it
// to the order, and decrement the in-degree of its successors.
//
// When several nodes are ready at once the tie-break is the order nodes
// were declared in, so scheduling is deterministic and reproducible
// across runs of the same graph. A *domain.CycleError is returned when
// the order cannot cover every node; the Validator reports the same
// condition earlier, this is a defensive re-check.
func (g *NodeGraph) TopologicalOrder() ([]string, error) {
	order := g.kahnOrder()
	if len(order) != len(g.order) {
		return nil, &domain.CycleError{Nodes: g.residueOf(order)}
	}
	return order, nil
}

// kahnOrder runs Kahn's algorithm with declaration-order tie-breaking
// and returns as many nodes as could be consumed.
func (g *NodeGraph) kahnOrder() []string {
	declIndex := make(map[string]int, len(g.order))
	for i, id := range g.order {
		declIndex[id] = i
	}

	edges := g.flowEdges()
	inDegree := make(map[string]int, len(g.order))
	for _, e := range edges {
		inDegree[e.ToNode]++
	}

	// ready holds zero-in-degree nodes kept sorted by declaration index.
	var ready []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, e := range edges {
			if e.FromNode != id {
				continue
			}
			inDegree[e.ToNode]--
			if inDegree[e.ToNode] == 0 {
				i := sort.Search(len(ready), func(j int) bool {
					return declIndex[ready[j]] > declIndex[e.ToNode]
				})
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = e.ToNode
			}
		}
	}
	return order
}

// kahnResidue returns the node ids Kahn's algorithm could not consume,
// in declaration order. A non-empty residue means the graph is cyclic.
func (g *NodeGraph) kahnResidue() []string {
	return g.residueOf(g.kahnOrder())
}

// residueOf returns declared nodes absent from the given partial order.
func (g *NodeGraph) residueOf(order []string) []string {
	consumed := make(map[string]struct{}, len(order))
	for _, id := range order {
		consumed[id] = struct{}{}
	}
	var leftover []string
	for _, id := range g.order {
		if _, ok := consumed[id]; !ok {
			leftover = append(leftover, id)
		}
	}
	return leftover
}

// subOrder filters a full topological order down to the given node set,
// preserving relative order.
func subOrder(order []string, include map[string]struct{}) []string {
	var out []string
	for _, id := range order {
		if _, ok := include[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
