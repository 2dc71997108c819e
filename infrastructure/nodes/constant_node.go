package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*ConstantNode)(nil)

// ConstantNode emits a single configured value on its "value" output
// port. It has no inputs, making it a source node: the scheduler places
// it before anything that consumes it.
//
// ConstantNode is stateless after construction and safe for repeated
// execution inside producer subgraphs.
type ConstantNode struct {
	id     string
	value  domain.DataValue
	tracer trace.Tracer
}

// ConstantConfig declares the constant's value and its data type.
type ConstantConfig struct {
	// Value is the literal emitted on every execution.
	Value any `yaml:"value"`
	// ValueType names the data type of Value. Defaults to string.
	ValueType string `yaml:"value_type"`
}

// NewConstantNode creates a ConstantNode holding the given value.
func NewConstantNode(id string, value domain.DataValue) (*ConstantNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if !value.IsValid() {
		return nil, fmt.Errorf("constant node %s: invalid value type %q", id, value.Type())
	}

	return &ConstantNode{
		id:     id,
		value:  value,
		tracer: otel.Tracer("constant-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (cn *ConstantNode) ID() string { return cn.id }

// Name returns a human-readable name for logging.
func (cn *ConstantNode) Name() string { return "Constant(" + cn.id + ")" }

// InputPorts returns no ports; constants are sources.
func (cn *ConstantNode) InputPorts() []domain.Port { return nil }

// OutputPorts declares the single "value" output carrying the
// configured type.
func (cn *ConstantNode) OutputPorts() []domain.Port {
	return []domain.Port{
		domain.NewPort("value", cn.value.Type()).WithDescription("the configured constant"),
	}
}

// Execute returns the configured value.
func (cn *ConstantNode) Execute(ctx context.Context, _ map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	_, span := cn.tracer.Start(ctx, "ConstantNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "constant"),
			attribute.String("node.id", cn.id),
			attribute.String("value.type", string(cn.value.Type())),
		),
	)
	defer span.End()

	return map[string]domain.DataValue{"value": cn.value}, nil
}

// coerceValue converts a decoded YAML scalar into a DataValue of the
// requested type. YAML decoding yields int for whole numbers even when
// a float was intended, so numeric kinds accept both.
func coerceValue(t domain.DataType, raw any) (domain.DataValue, error) {
	switch t {
	case domain.TypeString:
		s, ok := raw.(string)
		if !ok {
			return domain.DataValue{}, fmt.Errorf("expected string, got %T", raw)
		}
		return domain.StringValue(s), nil
	case domain.TypeInt:
		switch v := raw.(type) {
		case int:
			return domain.IntValue(int64(v)), nil
		case int64:
			return domain.IntValue(v), nil
		default:
			return domain.DataValue{}, fmt.Errorf("expected integer, got %T", raw)
		}
	case domain.TypeFloat:
		switch v := raw.(type) {
		case float64:
			return domain.FloatValue(v), nil
		case int:
			return domain.FloatValue(float64(v)), nil
		case int64:
			return domain.FloatValue(float64(v)), nil
		default:
			return domain.DataValue{}, fmt.Errorf("expected float, got %T", raw)
		}
	case domain.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return domain.DataValue{}, fmt.Errorf("expected boolean, got %T", raw)
		}
		return domain.BoolValue(b), nil
	case domain.TypeJSON:
		return domain.JSONValue(raw), nil
	case domain.TypeBinary:
		s, ok := raw.(string)
		if !ok {
			return domain.DataValue{}, fmt.Errorf("expected string for binary value, got %T", raw)
		}
		return domain.BinaryValue([]byte(s)), nil
	default:
		return domain.DataValue{}, fmt.Errorf("cannot build constant of type %q", t)
	}
}

// CreateConstantNode creates a ConstantNode from a configuration map.
// This factory follows the NodeFactory pattern for registry-driven
// instantiation.
//
// Supported config keys:
//   - "value" (any): the literal to emit (required)
//   - "value_type" (string): one of the DataType names, default "string"
func CreateConstantNode(id string, config map[string]any) (ports.Node, error) {
	var cfg ConstantConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Value == nil {
		return nil, fmt.Errorf("constant node requires a 'value' parameter")
	}

	t, err := parseValueType(cfg.ValueType)
	if err != nil {
		return nil, err
	}

	// JSON constants expressed as strings are parsed so downstream
	// nodes receive structure, not text.
	if t == domain.TypeJSON {
		if s, ok := cfg.Value.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return nil, fmt.Errorf("invalid json constant: %w", err)
			}
			cfg.Value = parsed
		}
	}

	value, err := coerceValue(t, cfg.Value)
	if err != nil {
		return nil, fmt.Errorf("constant node %s: %w", id, err)
	}
	return NewConstantNode(id, value)
}
