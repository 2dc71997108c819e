package application

import (
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-loom/internal/domain"
)

// GraphDefinition is the exchange format a graph is reconstructed from.
// It is the persisted shape of a NodeGraph: node declarations plus the
// edge set. An empty edge list selects legacy auto-bind mode, where
// ports bind by output-name to input-name matching across the whole
// pool instead of through explicit edges.
type GraphDefinition struct {
	// Version specifies the definition schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the graph.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Nodes declares the computational units of the graph in order;
	// declaration order is the scheduler's tie-break.
	Nodes []NodeDefinition `yaml:"nodes" validate:"required,min=1,dive"`
	// Edges declares explicit port-to-port bindings. Empty means
	// legacy auto-bind mode.
	Edges []EdgeDefinition `yaml:"edges" validate:"dive"`
}

// Metadata provides descriptive information about a graph to support
// organization, discovery, and operational management.
type Metadata struct {
	// Name is the human-readable identifier for this graph.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the graph's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels for filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for external integration.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// NodeDefinition declares one node: its graph-unique id, the registry
// key selecting its implementation, and an opaque configuration map
// passed to the node factory.
type NodeDefinition struct {
	// ID is the unique identifier for this node within the graph.
	ID string `yaml:"id" validate:"required,identifier,min=1,max=100"`
	// Type selects the node implementation via the registry.
	Type string `yaml:"type" validate:"required,identifier"`
	// Config contains type-specific configuration as flexible YAML,
	// validated by the node factory.
	Config yaml.Node `yaml:"config"`
}

// EdgeDefinition declares a binding from one node's output port to
// another node's input port.
type EdgeDefinition struct {
	FromNode string `yaml:"from_node" validate:"required,identifier"`
	FromPort string `yaml:"from_port" validate:"required,identifier"`
	ToNode   string `yaml:"to_node" validate:"required,identifier"`
	ToPort   string `yaml:"to_port" validate:"required,identifier"`
}

// toEdge converts the definition into its domain representation.
func (e EdgeDefinition) toEdge() domain.Edge {
	return domain.Edge{
		FromNode: e.FromNode,
		FromPort: e.FromPort,
		ToNode:   e.ToNode,
		ToPort:   e.ToPort,
	}
}
