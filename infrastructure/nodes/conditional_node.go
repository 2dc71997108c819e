package nodes

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*ConditionalNode)(nil)

// ConditionalNode selects between two inputs based on a boolean
// condition: "if_true" is forwarded to "result" when the condition
// holds, "if_false" otherwise. Both branch ports carry the configured
// value type so edges into either branch type-check uniformly.
//
// Both branches are evaluated by the scheduler before this node runs;
// the selection is of values, not of execution.
type ConditionalNode struct {
	id        string
	valueType domain.DataType
	tracer    trace.Tracer
}

// ConditionalConfig declares the data type of the branch values.
type ConditionalConfig struct {
	// ValueType names the type carried by if_true, if_false, and
	// result. Defaults to string.
	ValueType string `yaml:"value_type"`
}

// NewConditionalNode creates a ConditionalNode carrying the given
// branch value type.
func NewConditionalNode(id string, valueType domain.DataType) (*ConditionalNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if !valueType.Valid() {
		return nil, fmt.Errorf("conditional node %s: invalid value type %q", id, valueType)
	}

	return &ConditionalNode{
		id:        id,
		valueType: valueType,
		tracer:    otel.Tracer("conditional-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (cn *ConditionalNode) ID() string { return cn.id }

// Name returns a human-readable name for logging.
func (cn *ConditionalNode) Name() string { return "Conditional(" + cn.id + ")" }

// InputPorts declares the boolean condition and the two typed branches.
func (cn *ConditionalNode) InputPorts() []domain.Port {
	return []domain.Port{
		domain.NewPort("condition", domain.TypeBool),
		domain.NewPort("if_true", cn.valueType),
		domain.NewPort("if_false", cn.valueType),
	}
}

// OutputPorts declares the typed "result" port.
func (cn *ConditionalNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("result", cn.valueType)}
}

// Execute forwards the selected branch value.
func (cn *ConditionalNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	_, span := cn.tracer.Start(ctx, "ConditionalNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "conditional"),
			attribute.String("node.id", cn.id),
		),
	)
	defer span.End()

	condValue, ok := inputs["condition"]
	if !ok {
		err := fmt.Errorf("%w: condition", ErrMissingInput)
		span.RecordError(err)
		return nil, err
	}
	cond, ok := condValue.AsBool()
	if !ok {
		err := fmt.Errorf("%w: condition is %s, want boolean", ErrWrongInputType, condValue.Type())
		span.RecordError(err)
		return nil, err
	}

	branch := "if_false"
	if cond {
		branch = "if_true"
	}
	selected, ok := inputs[branch]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrMissingInput, branch)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("condition.value", cond))
	return map[string]domain.DataValue{"result": selected}, nil
}

// CreateConditionalNode creates a ConditionalNode from a configuration
// map.
//
// Supported config keys:
//   - "value_type" (string): type of the branch values, default "string"
func CreateConditionalNode(id string, config map[string]any) (ports.Node, error) {
	var cfg ConditionalConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	t, err := parseValueType(cfg.ValueType)
	if err != nil {
		return nil, err
	}
	return NewConditionalNode(id, t)
}
