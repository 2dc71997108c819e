// Package application composes the dataflow engine: graph structure and
// validation, topological scheduling, the per-run data pool, the event
// producer lifecycle controller, and the executor that drives them.
package application

import (
	"fmt"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// NodeGraph owns a set of nodes and the port-to-port bindings between
// them. It is the unit of validation and execution. Topology is built
// once through AddNode/AddEdge and treated as immutable after a
// successful Validate; the engine never mutates topology mid-execution.
//
// Binding operates in one of two modes. When edges are declared, each
// input port is resolved through its explicit edge. When no edges are
// declared the graph is in legacy auto-bind mode: inputs resolve by
// matching output-port names across the whole pool. The two modes are
// distinct and never mixed within one graph.
type NodeGraph struct {
	// name identifies the graph in error messages and metrics labels.
	name string
	// nodes maps node ids to their instances for O(1) lookup.
	nodes map[string]ports.Node
	// order preserves the sequence nodes were declared in; it is the
	// tie-break for deterministic scheduling.
	order []string
	// edges holds every declared port binding.
	edges []domain.Edge
	// succ is the node-level adjacency list derived from edges.
	succ map[string][]string
}

// NewNodeGraph creates an empty graph with the given name.
func NewNodeGraph(name string) *NodeGraph {
	return &NodeGraph{
		name:  name,
		nodes: make(map[string]ports.Node),
		succ:  make(map[string][]string),
	}
}

// Name returns the graph's name.
func (g *NodeGraph) Name() string { return g.name }

// AddNode registers a node. Node ids must be unique within the graph;
// a duplicate id returns an error wrapping domain.ErrDuplicateNode.
func (g *NodeGraph) AddNode(n ports.Node) error {
	if n == nil {
		return fmt.Errorf("cannot add nil node to graph %s", g.name)
	}
	id := n.ID()
	if id == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNode, id)
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return nil
}

// AddEdge declares a binding from an output port to an input port.
// Both endpoint nodes and ports must already exist; deeper checks
// (type equality, duplicate bindings, acyclicity) are deferred to
// Validate so every violation can be reported in one batch.
func (g *NodeGraph) AddEdge(e domain.Edge) error {
	from, ok := g.nodes[e.FromNode]
	if !ok {
		return fmt.Errorf("edge %s: source node %s does not exist", e, e.FromNode)
	}
	to, ok := g.nodes[e.ToNode]
	if !ok {
		return fmt.Errorf("edge %s: target node %s does not exist", e, e.ToNode)
	}
	if _, ok := findPort(from.OutputPorts(), e.FromPort); !ok {
		return fmt.Errorf("edge %s: node %s has no output port %q", e, e.FromNode, e.FromPort)
	}
	if _, ok := findPort(to.InputPorts(), e.ToPort); !ok {
		return fmt.Errorf("edge %s: node %s has no input port %q", e, e.ToNode, e.ToPort)
	}

	g.edges = append(g.edges, e)
	g.succ[e.FromNode] = append(g.succ[e.FromNode], e.ToNode)
	return nil
}

// Node retrieves a node by id.
func (g *NodeGraph) Node(id string) (ports.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in declaration order. The returned slice is a
// copy and safe to modify.
func (g *NodeGraph) Nodes() []ports.Node {
	out := make([]ports.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeIDs returns all node ids in declaration order.
func (g *NodeGraph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns a copy of every declared edge.
func (g *NodeGraph) Edges() []domain.Edge {
	out := make([]domain.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// LegacyAutoBind reports whether the graph binds ports by name matching
// because no edges were declared.
func (g *NodeGraph) LegacyAutoBind() bool { return len(g.edges) == 0 }

// flowEdges returns the bindings that carry data between nodes. In
// explicit mode these are the declared edges. In legacy auto-bind mode
// they are derived by name matching: an output port binds every other
// node's input port of the same name, so scheduling and partitioning
// see the same dependencies the pool resolves at runtime. A node's own
// outputs never bind its own inputs.
func (g *NodeGraph) flowEdges() []domain.Edge {
	if !g.LegacyAutoBind() {
		return g.edges
	}
	var out []domain.Edge
	for _, to := range g.order {
		for _, in := range g.nodes[to].InputPorts() {
			for _, from := range g.order {
				if from == to {
					continue
				}
				if _, ok := findPort(g.nodes[from].OutputPorts(), in.Name); ok {
					out = append(out, domain.Edge{
						FromNode: from, FromPort: in.Name,
						ToNode: to, ToPort: in.Name,
					})
				}
			}
		}
	}
	return out
}

// flowSucc is the node-level adjacency list over flowEdges.
func (g *NodeGraph) flowSucc() map[string][]string {
	if !g.LegacyAutoBind() {
		return g.succ
	}
	succ := make(map[string][]string)
	for _, e := range g.flowEdges() {
		succ[e.FromNode] = append(succ[e.FromNode], e.ToNode)
	}
	return succ
}

// incomingEdges returns every edge targeting the given input port.
func (g *NodeGraph) incomingEdges(nodeID, port string) []domain.Edge {
	var out []domain.Edge
	for _, e := range g.edges {
		if e.ToNode == nodeID && e.ToPort == port {
			out = append(out, e)
		}
	}
	return out
}

// outgoingEdges returns every edge sourced at the given output port.
func (g *NodeGraph) outgoingEdges(nodeID, port string) []domain.Edge {
	var out []domain.Edge
	for _, e := range g.edges {
		if e.FromNode == nodeID && e.FromPort == port {
			out = append(out, e)
		}
	}
	return out
}

// findPort looks up a port by name in a declared port list.
func findPort(ps []domain.Port, name string) (domain.Port, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return domain.Port{}, false
}
