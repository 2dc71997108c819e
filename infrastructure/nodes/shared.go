// Package nodes provides the built-in computational node types that
// implement the ports.Node interface for the go-loom dataflow engine.
package nodes

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-loom/internal/domain"
)

// Common errors returned by built-in nodes.
var (
	// ErrEmptyNodeID is returned when attempting to create a node with an empty id.
	ErrEmptyNodeID = errors.New("node id cannot be empty")

	// ErrMissingInput is returned when a required input value is absent at execution time.
	ErrMissingInput = errors.New("required input not provided")

	// ErrWrongInputType is returned when an input value carries an unexpected data type.
	ErrWrongInputType = errors.New("input value has wrong data type")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// decodeConfig overlays a raw configuration map onto a defaults struct
// using YAML round-tripping, then validates the result. Factories use
// it so config maps and YAML definitions share one decoding path.
func decodeConfig(config map[string]any, into any) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(into); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// parseValueType resolves a configured type name into a DataType,
// defaulting to string when the name is empty.
func parseValueType(name string) (domain.DataType, error) {
	if name == "" {
		return domain.TypeString, nil
	}
	t := domain.DataType(name)
	if !t.Valid() {
		return "", fmt.Errorf("unknown value type %q", name)
	}
	return t, nil
}
