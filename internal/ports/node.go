// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-loom/internal/domain"
)

// Node is the fundamental unit of computation in a dataflow graph.
// A node declares its typed input and output contract through ports and
// transforms one mapping of input values into one mapping of output values.
// Node implementations should be safe to execute repeatedly: the engine
// re-invokes nodes inside event-producer subgraphs on every tick.
type Node interface {
	// ID returns the node's unique identifier within its graph.
	// The ID remains constant for the node's lifetime and is used in
	// bindings, scheduling, and error reporting.
	ID() string

	// Name returns a human-readable name for logging and tooling.
	Name() string

	// InputPorts declares the node's typed input slots. Port names are
	// unique within the returned slice. Optional ports may be absent
	// from the inputs passed to Execute.
	InputPorts() []domain.Port

	// OutputPorts declares the node's typed output slots. Every value
	// the node returns from Execute must match a declared output port's
	// name and type.
	OutputPorts() []domain.Port

	// Execute runs the node's one-shot body with the gathered inputs
	// and returns its outputs keyed by output port name, or an error.
	// The engine validates inputs against InputPorts before the call
	// and outputs against OutputPorts after it.
	//
	// The context carries cancellation from the surrounding run; bodies
	// performing I/O should respect it and return promptly.
	Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error)
}

// EventProducer is the optional second capability a node may implement
// when it does not terminate after one invocation. Instead of Execute,
// the lifecycle controller drives the three-phase state machine:
// OnStart once, OnUpdate repeatedly until it reports exhaustion or fails,
// and OnCleanup exactly once regardless of how the loop ended.
//
// Producer state lives in the node instance between lifecycle calls; the
// engine never invokes lifecycle methods of one producer concurrently.
type EventProducer interface {
	Node

	// OnStart performs one-time setup such as opening connections or
	// parsing configuration. The inputs are gathered from the producer's
	// bound upstream values exactly as for Execute. A failure here is
	// fatal for this producer's subtree for the run.
	OnStart(ctx context.Context, inputs map[string]domain.DataValue) error

	// OnUpdate blocks until the next event or a stop signal. It returns
	// (outputs, true, nil) when one event was produced and the
	// downstream subgraph should run with those outputs, and
	// (nil, false, nil) when the producer is exhausted or was cancelled.
	// OnUpdate must observe ctx between events and must not busy-loop
	// while idle.
	OnUpdate(ctx context.Context) (outputs map[string]domain.DataValue, ok bool, err error)

	// OnCleanup releases resources. The engine guarantees it is called
	// exactly once after the loop ends, whether by exhaustion, error,
	// or cancellation.
	OnCleanup(ctx context.Context) error
}

// NodeFactory constructs a node instance from its id and an opaque
// configuration map taken from the graph definition.
type NodeFactory func(id string, config map[string]any) (Node, error)

// NodeRegistry maps node-type identifiers to factories so a graph
// definition (names plus config) can be instantiated into live nodes.
// Registration happens once at process-wide setup; lookups afterwards
// are immutable from the caller's perspective.
type NodeRegistry interface {
	// CreateNode instantiates a node of the given type. It returns
	// domain.ErrUnknownNodeType (wrapped) when no factory is registered
	// for nodeType.
	CreateNode(nodeType, id string, config map[string]any) (Node, error)

	// RegisterNodeFactory registers a factory for a node type,
	// replacing any previous registration for the same type.
	RegisterNodeFactory(nodeType string, factory NodeFactory) error

	// SupportedTypes returns every registered node type, for
	// validation and introspection.
	SupportedTypes() []string
}
