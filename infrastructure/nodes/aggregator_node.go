package nodes

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*AggregatorNode)(nil)

// Supported aggregation operations.
const (
	AggConcat = "concat"
	AggSum    = "sum"
	AggMean   = "mean"
	AggMin    = "min"
	AggMax    = "max"
)

// MaxAggregatorInputs bounds the fan-in of a single aggregator.
const MaxAggregatorInputs = 64

// AggregatorNode combines a fixed number of inputs into one output.
// Input ports are named "input_1" through "input_N". The concat
// operation joins strings with a separator; the numeric operations
// fold float inputs.
//
// AggregatorNode is stateless and safe for concurrent execution.
type AggregatorNode struct {
	id     string
	config AggregatorConfig
	tracer trace.Tracer
}

// AggregatorConfig selects the fold operation and fan-in.
type AggregatorConfig struct {
	// Operation names the aggregation to apply.
	Operation string `yaml:"operation" validate:"required,oneof=concat sum mean min max"`
	// InputCount is the number of input ports.
	InputCount int `yaml:"input_count" validate:"required,min=2,max=64"`
	// Separator joins inputs for the concat operation.
	Separator string `yaml:"separator"`
}

// NewAggregatorNode creates an AggregatorNode with validated
// configuration.
func NewAggregatorNode(id string, config AggregatorConfig) (*AggregatorNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &AggregatorNode{
		id:     id,
		config: config,
		tracer: otel.Tracer("aggregator-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (an *AggregatorNode) ID() string { return an.id }

// Name returns a human-readable name for logging.
func (an *AggregatorNode) Name() string { return "Aggregator(" + an.id + ")" }

// valueType is the element type implied by the operation.
func (an *AggregatorNode) valueType() domain.DataType {
	if an.config.Operation == AggConcat {
		return domain.TypeString
	}
	return domain.TypeFloat
}

// InputPorts declares input_1 through input_N of the operation's
// element type.
func (an *AggregatorNode) InputPorts() []domain.Port {
	t := an.valueType()
	ports := make([]domain.Port, an.config.InputCount)
	for i := range ports {
		ports[i] = domain.NewPort(fmt.Sprintf("input_%d", i+1), t)
	}
	return ports
}

// OutputPorts declares the single "output" port.
func (an *AggregatorNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("output", an.valueType())}
}

// Execute folds the inputs with the configured operation.
func (an *AggregatorNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	_, span := an.tracer.Start(ctx, "AggregatorNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "aggregator"),
			attribute.String("node.id", an.id),
			attribute.String("config.operation", an.config.Operation),
			attribute.Int("config.input_count", an.config.InputCount),
		),
	)
	defer span.End()

	if an.config.Operation == AggConcat {
		parts := make([]string, an.config.InputCount)
		for i := range parts {
			name := fmt.Sprintf("input_%d", i+1)
			v, ok := inputs[name]
			if !ok {
				err := fmt.Errorf("%w: %s", ErrMissingInput, name)
				span.RecordError(err)
				return nil, err
			}
			s, ok := v.AsString()
			if !ok {
				err := fmt.Errorf("%w: %s is %s, want string", ErrWrongInputType, name, v.Type())
				span.RecordError(err)
				return nil, err
			}
			parts[i] = s
		}
		joined := strings.Join(parts, an.config.Separator)
		return map[string]domain.DataValue{"output": domain.StringValue(joined)}, nil
	}

	values := make([]float64, an.config.InputCount)
	for i := range values {
		name := fmt.Sprintf("input_%d", i+1)
		v, ok := inputs[name]
		if !ok {
			err := fmt.Errorf("%w: %s", ErrMissingInput, name)
			span.RecordError(err)
			return nil, err
		}
		f, ok := v.AsFloat()
		if !ok {
			err := fmt.Errorf("%w: %s is %s, want float", ErrWrongInputType, name, v.Type())
			span.RecordError(err)
			return nil, err
		}
		values[i] = f
	}

	result := an.fold(values)
	span.SetAttributes(attribute.Float64("output.value", result))
	return map[string]domain.DataValue{"output": domain.FloatValue(result)}, nil
}

func (an *AggregatorNode) fold(values []float64) float64 {
	switch an.config.Operation {
	case AggSum, AggMean:
		total := 0.0
		for _, v := range values {
			total += v
		}
		if an.config.Operation == AggMean {
			return total / float64(len(values))
		}
		return total
	case AggMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default:
		return 0
	}
}

// CreateAggregatorNode creates an AggregatorNode from a configuration
// map.
//
// Supported config keys:
//   - "operation" (string): concat, sum, mean, min, or max (required)
//   - "input_count" (int): number of input ports, 2 to 64 (required)
//   - "separator" (string): joiner for concat, default ""
func CreateAggregatorNode(id string, config map[string]any) (ports.Node, error) {
	var cfg AggregatorConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewAggregatorNode(id, cfg)
}
