package nodes

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*TransformNode)(nil)

// Supported transform operations.
const (
	OpUppercase = "uppercase"
	OpLowercase = "lowercase"
	OpTitle     = "title"
	OpTrim      = "trim"
	OpReverse   = "reverse"
	OpTemplate  = "template"
)

// TransformNode applies a string operation to its "input" port and
// emits the result on "output". Case operations use Unicode-aware
// casers rather than the ASCII-only strings helpers.
//
// TransformNode is stateless and safe for concurrent execution.
type TransformNode struct {
	id     string
	config TransformConfig
	tracer trace.Tracer
}

// TransformConfig selects the operation and its parameters.
type TransformConfig struct {
	// Operation names the transformation to apply.
	Operation string `yaml:"operation" validate:"required,oneof=uppercase lowercase title trim reverse template"`
	// Prefix is prepended to the result after the operation runs.
	Prefix string `yaml:"prefix"`
	// Suffix is appended to the result after the operation runs.
	Suffix string `yaml:"suffix"`
	// Template is the format string for the template operation; the
	// input replaces every "{input}" placeholder.
	Template string `yaml:"template"`
}

// NewTransformNode creates a TransformNode with validated configuration.
func NewTransformNode(id string, config TransformConfig) (*TransformNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if config.Operation == OpTemplate && !strings.Contains(config.Template, "{input}") {
		return nil, fmt.Errorf("template operation requires a 'template' containing {input}")
	}

	return &TransformNode{
		id:     id,
		config: config,
		tracer: otel.Tracer("transform-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (tn *TransformNode) ID() string { return tn.id }

// Name returns a human-readable name for logging.
func (tn *TransformNode) Name() string { return "Transform(" + tn.id + ")" }

// InputPorts declares the required string "input" port.
func (tn *TransformNode) InputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("input", domain.TypeString)}
}

// OutputPorts declares the string "output" port.
func (tn *TransformNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("output", domain.TypeString)}
}

// Execute applies the configured operation to the input string.
func (tn *TransformNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	_, span := tn.tracer.Start(ctx, "TransformNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "transform"),
			attribute.String("node.id", tn.id),
			attribute.String("config.operation", tn.config.Operation),
		),
	)
	defer span.End()

	in, ok := inputs["input"]
	if !ok {
		err := fmt.Errorf("%w: input", ErrMissingInput)
		span.RecordError(err)
		return nil, err
	}
	s, ok := in.AsString()
	if !ok {
		err := fmt.Errorf("%w: input is %s, want string", ErrWrongInputType, in.Type())
		span.RecordError(err)
		return nil, err
	}

	result, err := tn.apply(s)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result = tn.config.Prefix + result + tn.config.Suffix

	span.SetAttributes(attribute.Int("output.length", len(result)))
	return map[string]domain.DataValue{"output": domain.StringValue(result)}, nil
}

func (tn *TransformNode) apply(s string) (string, error) {
	switch tn.config.Operation {
	case OpUppercase:
		return cases.Upper(language.Und).String(s), nil
	case OpLowercase:
		return cases.Lower(language.Und).String(s), nil
	case OpTitle:
		return cases.Title(language.Und).String(s), nil
	case OpTrim:
		return strings.TrimSpace(s), nil
	case OpReverse:
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	case OpTemplate:
		return strings.ReplaceAll(tn.config.Template, "{input}", s), nil
	default:
		return "", fmt.Errorf("unsupported operation: %s", tn.config.Operation)
	}
}

// CreateTransformNode creates a TransformNode from a configuration map.
//
// Supported config keys:
//   - "operation" (string): uppercase, lowercase, title, trim, reverse,
//     or template (required)
//   - "prefix", "suffix" (string): literals wrapped around the result
//   - "template" (string): format for the template operation
func CreateTransformNode(id string, config map[string]any) (ports.Node, error) {
	var cfg TransformConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewTransformNode(id, cfg)
}
