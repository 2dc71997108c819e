package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors raised while building or executing graphs.
var (
	// ErrUnknownNodeType indicates the registry has no factory for a
	// node type named in a graph definition. Fatal to graph build.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrDuplicateNode indicates two nodes in one graph share an id.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrDuplicateValue indicates an attempt to write a data pool key
	// that already holds a value. Pool entries are write-once per run,
	// so a valid schedule can never trigger this.
	ErrDuplicateValue = errors.New("data pool key already written")

	// ErrGraphInvalid indicates execution was requested for a graph
	// that failed validation.
	ErrGraphInvalid = errors.New("graph failed validation")
)

// CycleError reports that the edge set contains a directed cycle.
// Nodes lists every node id Kahn's algorithm could not consume; no
// meaningful partial order exists among them.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among nodes [%s]", strings.Join(e.Nodes, ", "))
}

// TypeMismatchError reports an edge whose endpoint ports declare
// different data types.
type TypeMismatchError struct {
	Edge     Edge
	Expected DataType
	Actual   DataType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on edge %s: expected %s, got %s",
		e.Edge, e.Expected, e.Actual)
}

// UnboundPortError reports a required input port with no resolved
// binding. It is raised during validation, or at runtime when a
// producing node omitted an output a downstream edge requires.
type UnboundPortError struct {
	NodeID string
	Port   string
}

func (e *UnboundPortError) Error() string {
	return fmt.Sprintf("required input port %s.%s is unbound", e.NodeID, e.Port)
}

// DuplicateBindingError reports an input port that is the target of more
// than one edge, which makes its binding ambiguous.
type DuplicateBindingError struct {
	NodeID string
	Port   string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("input port %s.%s is bound by more than one edge", e.NodeID, e.Port)
}

// ValidationError batches every violation found while validating a graph
// so tooling can report them together instead of fixing one at a time.
type ValidationError struct {
	// GraphName identifies the graph that failed validation.
	GraphName string
	// Violations holds each structural violation. Entries are one of
	// *CycleError, *TypeMismatchError, *UnboundPortError, or
	// *DuplicateBindingError.
	Violations []error
}

// Error implements the error interface, joining every violation.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("graph %q invalid: %s", e.GraphName, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error { return e.Violations }

// Add appends a violation.
func (e *ValidationError) Add(err error) { e.Violations = append(e.Violations, err) }

// HasViolations reports whether any violation was recorded.
func (e *ValidationError) HasViolations() bool { return len(e.Violations) > 0 }

// NodeExecutionError wraps a failure raised by a one-shot node body.
// It aborts the current run; pool entries already written stay intact
// for diagnostics.
type NodeExecutionError struct {
	NodeID string
	Err    error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s: execution failed: %v", e.NodeID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// ProducerStartError wraps a failure from an event producer's OnStart.
// Fatal to that producer's subtree only; sibling subtrees continue.
type ProducerStartError struct {
	NodeID string
	Err    error
}

func (e *ProducerStartError) Error() string {
	return fmt.Sprintf("producer %s: start failed: %v", e.NodeID, e.Err)
}

func (e *ProducerStartError) Unwrap() error { return e.Err }

// ProducerUpdateError wraps a failure from an event producer's OnUpdate
// or from executing its downstream subgraph during a tick. Cleanup still
// runs; the subtree terminates with this error while siblings continue.
type ProducerUpdateError struct {
	NodeID string
	Err    error
}

func (e *ProducerUpdateError) Error() string {
	return fmt.Sprintf("producer %s: update failed: %v", e.NodeID, e.Err)
}

func (e *ProducerUpdateError) Unwrap() error { return e.Err }
