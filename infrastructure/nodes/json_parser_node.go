package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*JSONParserNode)(nil)

// MaxJSONInputLength caps the input accepted by the parser (10MB).
const MaxJSONInputLength = 10 * 1024 * 1024

// JSONParserNode parses a JSON document from its string "input" port
// and emits the resulting structure on "output". An optional dotted
// field path extracts a nested value after parsing.
//
// JSONParserNode is stateless and safe for concurrent execution.
type JSONParserNode struct {
	id     string
	config JSONParserConfig
	tracer trace.Tracer
}

// JSONParserConfig controls optional post-parse extraction.
type JSONParserConfig struct {
	// Field is a dotted path ("user.name") selecting a nested value
	// from the parsed document. Empty emits the whole document.
	Field string `yaml:"field"`
}

// NewJSONParserNode creates a JSONParserNode.
func NewJSONParserNode(id string, config JSONParserConfig) (*JSONParserNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}

	return &JSONParserNode{
		id:     id,
		config: config,
		tracer: otel.Tracer("json-parser-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (jn *JSONParserNode) ID() string { return jn.id }

// Name returns a human-readable name for logging.
func (jn *JSONParserNode) Name() string { return "JSONParser(" + jn.id + ")" }

// InputPorts declares the required string "input" port.
func (jn *JSONParserNode) InputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("input", domain.TypeString)}
}

// OutputPorts declares the json "output" port.
func (jn *JSONParserNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("output", domain.TypeJSON)}
}

// Execute parses the input and applies the configured field path.
func (jn *JSONParserNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	_, span := jn.tracer.Start(ctx, "JSONParserNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "json_parser"),
			attribute.String("node.id", jn.id),
			attribute.String("config.field", jn.config.Field),
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
	if len(s) > MaxJSONInputLength {
		err := fmt.Errorf("input too long: %d bytes exceeds limit of %d", len(s), MaxJSONInputLength)
		span.RecordError(err)
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		err = fmt.Errorf("invalid json: %w", err)
		span.RecordError(err)
		return nil, err
	}

	if jn.config.Field != "" {
		extracted, err := extractField(parsed, jn.config.Field)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		parsed = extracted
	}

	return map[string]domain.DataValue{"output": domain.JSONValue(parsed)}, nil
}

// extractField walks a dotted path through nested JSON objects.
func extractField(doc any, path string) (any, error) {
	current := doc
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field path %q: segment %q is not an object", path, segment)
		}
		value, exists := obj[segment]
		if !exists {
			return nil, fmt.Errorf("field path %q: key %q not found", path, segment)
		}
		current = value
	}
	return current, nil
}

// CreateJSONParserNode creates a JSONParserNode from a configuration
// map.
//
// Supported config keys:
//   - "field" (string): dotted path to extract from the parsed document
func CreateJSONParserNode(id string, config map[string]any) (ports.Node, error) {
	var cfg JSONParserConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewJSONParserNode(id, cfg)
}
