package nodes

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*DelayNode)(nil)

// MaxDelay caps the configurable pause to keep a misconfigured graph
// from stalling a run indefinitely.
const MaxDelay = 5 * time.Minute

// DelayNode forwards its "input" to "output" after a configured pause.
// The pause observes context cancellation, so an aborted run does not
// wait out the remaining delay.
type DelayNode struct {
	id        string
	duration  time.Duration
	valueType domain.DataType
	tracer    trace.Tracer
}

// DelayConfig declares the pause duration and the pass-through type.
type DelayConfig struct {
	// Duration is the pause in Go duration syntax ("250ms", "2s").
	Duration string `yaml:"duration" validate:"required"`
	// ValueType names the type carried through. Defaults to string.
	ValueType string `yaml:"value_type"`
}

// NewDelayNode creates a DelayNode pausing for d before forwarding.
func NewDelayNode(id string, d time.Duration, valueType domain.DataType) (*DelayNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if d <= 0 || d > MaxDelay {
		return nil, fmt.Errorf("delay node %s: duration must be in (0, %s], got %s", id, MaxDelay, d)
	}
	if !valueType.Valid() {
		return nil, fmt.Errorf("delay node %s: invalid value type %q", id, valueType)
	}

	return &DelayNode{
		id:        id,
		duration:  d,
		valueType: valueType,
		tracer:    otel.Tracer("delay-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (dn *DelayNode) ID() string { return dn.id }

// Name returns a human-readable name for logging.
func (dn *DelayNode) Name() string { return "Delay(" + dn.id + ")" }

// InputPorts declares the typed pass-through "input" port.
func (dn *DelayNode) InputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("input", dn.valueType)}
}

// OutputPorts declares the typed "output" port.
func (dn *DelayNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("output", dn.valueType)}
}

// Execute waits out the configured duration, then forwards the input.
func (dn *DelayNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	_, span := dn.tracer.Start(ctx, "DelayNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "delay"),
			attribute.String("node.id", dn.id),
			attribute.String("config.duration", dn.duration.String()),
		),
	)
	defer span.End()

	in, ok := inputs["input"]
	if !ok {
		err := fmt.Errorf("%w: input", ErrMissingInput)
		span.RecordError(err)
		return nil, err
	}

	timer := time.NewTimer(dn.duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	case <-timer.C:
	}

	return map[string]domain.DataValue{"output": in}, nil
}

// CreateDelayNode creates a DelayNode from a configuration map.
//
// Supported config keys:
//   - "duration" (string): Go duration syntax (required)
//   - "value_type" (string): pass-through type, default "string"
func CreateDelayNode(id string, config map[string]any) (ports.Node, error) {
	var cfg DelayConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(cfg.Duration)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", cfg.Duration, err)
	}
	t, err := parseValueType(cfg.ValueType)
	if err != nil {
		return nil, err
	}
	return NewDelayNode(id, d, t)
}
