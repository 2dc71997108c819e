package application

import (
	"context"
	"sync"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// stubNode is a configurable one-shot node for engine tests.
type stubNode struct {
	id      string
	inputs  []domain.Port
	outputs []domain.Port

	// execute overrides the default behavior of emitting emit verbatim.
	execute func(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error)
	// emit is returned by the default Execute.
	emit map[string]domain.DataValue

	mu       sync.Mutex
	runs     int
	seen     []map[string]domain.DataValue
	lastSeen map[string]domain.DataValue
}

func (s *stubNode) ID() string                 { return s.id }
func (s *stubNode) Name() string               { return "Stub(" + s.id + ")" }
func (s *stubNode) InputPorts() []domain.Port  { return s.inputs }
func (s *stubNode) OutputPorts() []domain.Port { return s.outputs }

func (s *stubNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	s.mu.Lock()
	s.runs++
	s.seen = append(s.seen, inputs)
	s.lastSeen = inputs
	s.mu.Unlock()

	if s.execute != nil {
		return s.execute(ctx, inputs)
	}
	return s.emit, nil
}

func (s *stubNode) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// stubProducer is a scripted event producer: it emits each entry of
// ticks in order, then reports exhaustion.
type stubProducer struct {
	stubNode

	ticks []map[string]domain.DataValue

	startErr  error
	updateErr error
	// failAfter injects updateErr after that many successful ticks;
	// negative means never.
	failAfter int

	pmu      sync.Mutex
	starts   int
	updates  int
	cleanups int
	emitted  int
}

func (p *stubProducer) OnStart(_ context.Context, _ map[string]domain.DataValue) error {
	p.pmu.Lock()
	p.starts++
	p.emitted = 0
	p.pmu.Unlock()
	return p.startErr
}

func (p *stubProducer) OnUpdate(ctx context.Context) (map[string]domain.DataValue, bool, error) {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	p.updates++

	if ctx.Err() != nil {
		return nil, false, nil
	}
	if p.updateErr != nil && p.failAfter >= 0 && p.emitted >= p.failAfter {
		return nil, false, p.updateErr
	}
	if p.emitted >= len(p.ticks) {
		return nil, false, nil
	}
	out := p.ticks[p.emitted]
	p.emitted++
	return out, true, nil
}

func (p *stubProducer) OnCleanup(context.Context) error {
	p.pmu.Lock()
	p.cleanups++
	p.pmu.Unlock()
	return nil
}

func (p *stubProducer) counts() (starts, updates, cleanups int) {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	return p.starts, p.updates, p.cleanups
}

var (
	_ ports.Node          = (*stubNode)(nil)
	_ ports.EventProducer = (*stubProducer)(nil)
)

// newStub builds a stub node with string ports named by the given
// input and output lists.
func newStub(id string, inputs, outputs []string) *stubNode {
	n := &stubNode{id: id}
	for _, in := range inputs {
		n.inputs = append(n.inputs, domain.NewPort(in, domain.TypeString))
	}
	n.emit = make(map[string]domain.DataValue)
	for _, out := range outputs {
		n.outputs = append(n.outputs, domain.NewPort(out, domain.TypeString))
		n.emit[out] = domain.StringValue(id + ":" + out)
	}
	return n
}

// edge is shorthand for building a domain.Edge in tests.
func edge(fromNode, fromPort, toNode, toPort string) domain.Edge {
	return domain.Edge{FromNode: fromNode, FromPort: fromPort, ToNode: toNode, ToPort: toPort}
}
