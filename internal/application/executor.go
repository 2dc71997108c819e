package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// Executor drives one graph through a complete run: validation,
// scheduling, base-layer execution, and the event producer lifecycle.
// The base layer and the mixed-execution driver run on a single logical
// thread of control; only whole root-producer subtrees may be placed on
// separate workers via WithConcurrentRoots.
//
// An Executor may be reused for repeated runs of the same graph; each
// run allocates a fresh DataPool.
type Executor struct {
	graph   *NodeGraph
	metrics ports.MetricsCollector
	tracer  trace.Tracer

	// concurrentRoots runs independent root-producer subtrees on
	// separate goroutines, each owning a private slice of the pool.
	concurrentRoots bool

	// mu guards producer lifecycle states, which concurrent subtrees
	// update independently.
	mu     sync.Mutex
	states map[string]ProducerState
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMetrics attaches a metrics collector recording node executions,
// producer ticks, and latencies.
func WithMetrics(m ports.MetricsCollector) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithConcurrentRoots runs each root producer's subtree on its own
// worker. Base-layer values are shared read-only; every tick context is
// private to its subtree, so the pool write-once invariant holds.
func WithConcurrentRoots() ExecutorOption {
	return func(e *Executor) { e.concurrentRoots = true }
}

// NewExecutor creates an executor for the given graph.
func NewExecutor(graph *NodeGraph, opts ...ExecutorOption) *Executor {
	e := &Executor{
		graph:  graph,
		tracer: otel.Tracer("graph-executor"),
		states: make(map[string]ProducerState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the graph once and returns the run's data pool for
// introspection. Validation failures are returned before any node
// executes. A base-layer node failure aborts the run immediately;
// already-written pool entries remain intact for diagnostics. Producer
// subtree failures terminate only their subtree, and the errors of all
// failed subtrees are joined into the returned error once every subtree
// has terminated.
func (e *Executor) Run(ctx context.Context) (*DataPool, error) {
	if err := e.graph.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGraphInvalid, err)
	}

	order, err := e.graph.TopologicalOrder()
	if err != nil {
		// Defensive re-check; Validate reports cycles first.
		return nil, err
	}

	part := e.graph.partition(order)
	for _, id := range part.producers {
		e.setProducerState(id, ProducerCreated)
	}

	pool := NewDataPool()
	for _, id := range part.base {
		select {
		case <-ctx.Done():
			return pool, ctx.Err()
		default:
		}
		node, _ := e.graph.Node(id)
		if err := e.executeNode(ctx, node, pool); err != nil {
			return pool, err
		}
	}

	if len(part.roots) == 0 {
		return pool, nil
	}
	return pool, e.runProducers(ctx, part, pool)
}

// runProducers drives every root producer subtree to termination,
// cooperatively in declaration order or concurrently on workers.
func (e *Executor) runProducers(ctx context.Context, part graphPartition, pool *DataPool) error {
	if !e.concurrentRoots {
		var errs []error
		for _, id := range part.roots {
			if err := e.runProducer(ctx, part, id, pool); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	// One worker per root subtree. No shared group context: a failing
	// subtree must not cancel its siblings.
	var g errgroup.Group
	subtreeErrs := make([]error, len(part.roots))
	for i, id := range part.roots {
		g.Go(func() error {
			subtreeErrs[i] = e.runProducer(ctx, part, id, pool)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(subtreeErrs...)
}

// executeNode runs one one-shot node against the pool: gather inputs,
// invoke the body, validate outputs, insert results.
func (e *Executor) executeNode(ctx context.Context, node ports.Node, pool *DataPool) error {
	inputs, err := e.gatherInputs(node, pool)
	if err != nil {
		return err
	}

	ctx, span := e.tracer.Start(ctx, "Node.Execute",
		trace.WithAttributes(
			attribute.String("node.id", node.ID()),
			attribute.String("graph.name", e.graph.name),
		))
	start := time.Now()
	outputs, err := node.Execute(ctx, inputs)
	elapsed := time.Since(start)
	span.End()

	e.recordNodeExecution(node.ID(), elapsed, err)
	if err != nil {
		return &domain.NodeExecutionError{NodeID: node.ID(), Err: err}
	}

	if err := e.checkOutputs(node, outputs); err != nil {
		return err
	}
	return pool.PutOutputs(node.ID(), outputs, e.graph.LegacyAutoBind())
}

// gatherInputs assembles a node's inputs by resolving each input port's
// binding against the pool: explicit edge to the producer's output key,
// or a bare name match in legacy mode. A required port with no resolved
// value is the runtime-discovered unbound-port condition.
func (e *Executor) gatherInputs(node ports.Node, pool *DataPool) (map[string]domain.DataValue, error) {
	legacy := e.graph.LegacyAutoBind()
	inputs := make(map[string]domain.DataValue)

	for _, port := range node.InputPorts() {
		var value domain.DataValue
		var found bool

		if legacy {
			value, found = pool.Get(port.Name)
		} else if edges := e.graph.incomingEdges(node.ID(), port.Name); len(edges) == 1 {
			value, found = pool.Get(domain.BindingKey(edges[0].FromNode, edges[0].FromPort))
		}

		if !found {
			if port.Required {
				return nil, &domain.UnboundPortError{NodeID: node.ID(), Port: port.Name}
			}
			continue
		}
		if value.Type() != port.Type {
			// Edge types are validated statically; this guards legacy
			// name matches and misbehaving upstream bodies.
			return nil, &domain.NodeExecutionError{
				NodeID: node.ID(),
				Err:    fmt.Errorf("input port %q expects %s, got %s", port.Name, port.Type, value.Type()),
			}
		}
		inputs[port.Name] = value
	}
	return inputs, nil
}

// checkOutputs validates a node's returned outputs against its declared
// output ports. Undeclared keys and type mismatches are execution
// errors. A missing declared output is tolerated unless a downstream
// edge feeds it into a required input, which is the runtime variant of
// the unbound-required-port violation, attributed to the consumer.
func (e *Executor) checkOutputs(node ports.Node, outputs map[string]domain.DataValue) error {
	declared := node.OutputPorts()

	for name, value := range outputs {
		port, ok := findPort(declared, name)
		if !ok {
			return &domain.NodeExecutionError{
				NodeID: node.ID(),
				Err:    fmt.Errorf("returned undeclared output port %q", name),
			}
		}
		if value.Type() != port.Type {
			return &domain.NodeExecutionError{
				NodeID: node.ID(),
				Err:    fmt.Errorf("output port %q expects %s, got %s", name, port.Type, value.Type()),
			}
		}
	}

	for _, port := range declared {
		if _, produced := outputs[port.Name]; produced {
			continue
		}
		for _, edge := range e.graph.outgoingEdges(node.ID(), port.Name) {
			consumer, _ := e.graph.Node(edge.ToNode)
			if in, ok := findPort(consumer.InputPorts(), edge.ToPort); ok && in.Required {
				return &domain.UnboundPortError{NodeID: edge.ToNode, Port: edge.ToPort}
			}
		}
	}
	return nil
}

// recordNodeExecution emits metrics for one node invocation when a
// collector is attached.
func (e *Executor) recordNodeExecution(nodeID string, elapsed time.Duration, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := map[string]string{"graph": e.graph.name, "node": nodeID, "status": status}
	e.metrics.RecordCounter("node_executions_total", 1, labels)
	e.metrics.RecordLatency("node_execute", elapsed, labels)
}
