package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// ProducerState is one phase of an event producer's lifecycle state
// machine: Created → Started → {Looping ⇄ Emitting} → CleaningUp →
// Terminated. Any unhandled update error transitions directly to
// CleaningUp; cleanup is never skipped once the producer has started.
type ProducerState string

// Lifecycle phases.
const (
	ProducerCreated    ProducerState = "created"
	ProducerStarted    ProducerState = "started"
	ProducerLooping    ProducerState = "looping"
	ProducerEmitting   ProducerState = "emitting"
	ProducerCleaningUp ProducerState = "cleaning_up"
	ProducerTerminated ProducerState = "terminated"
)

// graphPartition splits a mixed graph into the static base layer and
// the per-producer subgraphs the lifecycle controller re-executes on
// every event tick.
type graphPartition struct {
	// base holds plain nodes not reachable from any producer, in
	// topological order. They execute exactly once, before any
	// producer starts.
	base []string
	// producers holds every event producer id in declaration order.
	producers []string
	// roots holds producers with no producer upstream of them, in
	// declaration order.
	roots []string
	// direct maps a producer to the plain nodes reachable from it
	// without crossing another producer, in topological order. These
	// re-execute on each of the producer's ticks.
	direct map[string][]string
	// children maps a producer to the producers reachable from it
	// without crossing a third producer, in topological order. They are
	// started fresh inside each of the parent's ticks.
	children map[string][]string
}

// partition computes the mixed-execution layout from a full topological
// order.
func (g *NodeGraph) partition(order []string) graphPartition {
	part := graphPartition{
		direct:   make(map[string][]string),
		children: make(map[string][]string),
	}

	isProducer := make(map[string]bool, len(g.order))
	for _, id := range g.order {
		if _, ok := g.nodes[id].(ports.EventProducer); ok {
			isProducer[id] = true
			part.producers = append(part.producers, id)
		}
	}

	// Full forward reachability from each producer, crossing nested
	// producers, determines the base layer and the root producers.
	// Legacy graphs contribute their name-match bindings here, so a
	// consumer fed only by a producer lands in that producer's subgraph
	// rather than the base layer.
	succ := g.flowSucc()
	reachedByAny := make(map[string]struct{})
	reachedProducers := make(map[string]struct{})
	for _, p := range part.producers {
		for id := range g.reachableFrom(p, succ, nil) {
			reachedByAny[id] = struct{}{}
			if isProducer[id] {
				reachedProducers[id] = struct{}{}
			}
		}
	}

	baseSet := make(map[string]struct{})
	for _, id := range g.order {
		if isProducer[id] {
			continue
		}
		if _, reached := reachedByAny[id]; !reached {
			baseSet[id] = struct{}{}
		}
	}
	part.base = subOrder(order, baseSet)

	for _, p := range part.producers {
		if _, nested := reachedProducers[p]; !nested {
			part.roots = append(part.roots, p)
		}
	}

	// Direct reachability stops at producer boundaries: nodes behind a
	// nested producer belong to that producer's ticks, not the parent's.
	for _, p := range part.producers {
		reach := g.reachableFrom(p, succ, isProducer)
		plain := make(map[string]struct{})
		kids := make(map[string]struct{})
		for id := range reach {
			if isProducer[id] {
				kids[id] = struct{}{}
			} else {
				plain[id] = struct{}{}
			}
		}
		part.direct[p] = subOrder(order, plain)
		part.children[p] = subOrder(order, kids)
	}

	return part
}

// reachableFrom computes the downstream reachable set of start via
// forward BFS over the given adjacency, excluding start itself. When
// stopAt is non-nil, nodes it marks are recorded but not expanded, so
// traversal stops at producer boundaries.
func (g *NodeGraph) reachableFrom(start string, succ map[string][]string, stopAt map[string]bool) map[string]struct{} {
	seen := map[string]struct{}{start: {}}
	reach := make(map[string]struct{})
	queue := []string{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range succ[id] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			reach[next] = struct{}{}
			if stopAt != nil && stopAt[next] {
				continue
			}
			queue = append(queue, next)
		}
	}
	return reach
}

// runProducer drives one event producer through its full lifecycle
// against the given base pool: OnStart with inputs gathered from the
// base, then the update loop, re-executing the producer's direct
// subgraph and nested producers on every emitted event, and finally
// OnCleanup exactly once.
//
// Errors from the producer itself or from its direct subgraph terminate
// this subtree. Errors from nested producer subtrees are collected and
// reported after this producer exhausts, without stopping its loop;
// sibling subtrees of the same tick run to completion.
func (e *Executor) runProducer(ctx context.Context, part graphPartition, id string, base *DataPool) error {
	prod := e.graph.nodes[id].(ports.EventProducer)

	inputs, err := e.gatherInputs(prod, base)
	if err != nil {
		e.setProducerState(id, ProducerTerminated)
		return &domain.ProducerStartError{NodeID: id, Err: err}
	}
	if err := prod.OnStart(ctx, inputs); err != nil {
		// The producer never started, so there is nothing to clean up.
		e.setProducerState(id, ProducerTerminated)
		return &domain.ProducerStartError{NodeID: id, Err: err}
	}
	e.setProducerState(id, ProducerStarted)

	var nestedErrs []error
	e.setProducerState(id, ProducerLooping)
	for {
		if ctx.Err() != nil {
			e.cleanupProducer(ctx, prod, id)
			return errors.Join(append(nestedErrs, ctx.Err())...)
		}

		outputs, ok, err := prod.OnUpdate(ctx)
		if err != nil {
			e.cleanupProducer(ctx, prod, id)
			return errors.Join(append(nestedErrs, &domain.ProducerUpdateError{NodeID: id, Err: err})...)
		}
		if !ok {
			break
		}

		e.setProducerState(id, ProducerEmitting)
		if err := e.runTick(ctx, part, id, prod, base, outputs, &nestedErrs); err != nil {
			e.cleanupProducer(ctx, prod, id)
			return errors.Join(append(nestedErrs, &domain.ProducerUpdateError{NodeID: id, Err: err})...)
		}
		e.setProducerState(id, ProducerLooping)
	}

	e.cleanupProducer(ctx, prod, id)
	return errors.Join(nestedErrs...)
}

// runTick executes one event tick: merge the producer's outputs into a
// fresh per-tick context layered over the base, execute every directly
// reachable plain node in topological order, then start each nested
// producer against the tick context. Nested subtree errors accumulate
// into nestedErrs; an error from this producer's own outputs or direct
// subgraph is returned and terminates the subtree.
func (e *Executor) runTick(
	ctx context.Context,
	part graphPartition,
	id string,
	prod ports.EventProducer,
	base *DataPool,
	outputs map[string]domain.DataValue,
	nestedErrs *[]error,
) error {
	ctx, span := e.tracer.Start(ctx, "Producer.Tick",
		trace.WithAttributes(
			attribute.String("producer.id", id),
			attribute.String("graph.name", e.graph.name),
		))
	defer span.End()
	start := time.Now()

	if err := e.checkOutputs(prod, outputs); err != nil {
		return err
	}
	tick := base.Fork()
	if err := tick.PutOutputs(id, outputs, e.graph.LegacyAutoBind()); err != nil {
		return err
	}

	for _, nodeID := range part.direct[id] {
		node, _ := e.graph.Node(nodeID)
		if err := e.executeNode(ctx, node, tick); err != nil {
			return err
		}
	}

	for _, child := range part.children[id] {
		if err := e.runProducer(ctx, part, child, tick); err != nil {
			*nestedErrs = append(*nestedErrs, err)
		}
	}

	if e.metrics != nil {
		labels := map[string]string{"graph": e.graph.name, "producer": id}
		e.metrics.RecordCounter("producer_ticks_total", 1, labels)
		e.metrics.RecordLatency("producer_tick", time.Since(start), labels)
	}
	return nil
}

// cleanupProducer invokes OnCleanup exactly once and settles the state
// machine. Cleanup runs even when the surrounding context was cancelled,
// so resources release deterministically regardless of exit path.
func (e *Executor) cleanupProducer(ctx context.Context, prod ports.EventProducer, id string) {
	e.setProducerState(id, ProducerCleaningUp)
	if err := prod.OnCleanup(context.WithoutCancel(ctx)); err != nil && e.metrics != nil {
		e.metrics.RecordCounter("producer_cleanup_errors_total", 1,
			map[string]string{"graph": e.graph.name, "producer": id})
	}
	e.setProducerState(id, ProducerTerminated)
}

// setProducerState records a lifecycle transition.
func (e *Executor) setProducerState(id string, s ProducerState) {
	e.mu.Lock()
	e.states[id] = s
	e.mu.Unlock()
}

// ProducerState reports the current lifecycle phase of a producer,
// primarily for introspection and tests.
func (e *Executor) ProducerState(id string) (ProducerState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.states[id]
	return s, ok
}
