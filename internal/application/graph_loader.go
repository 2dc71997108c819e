package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-loom/internal/ports"
)

// GraphLoader parses, validates, and caches graph definitions,
// transforming declarative YAML (or JSON, a YAML subset) into live
// NodeGraph structures ready for execution.
// Use GraphLoader to load graphs from files or readers while benefiting
// from SHA256-based caching and comprehensive validation.
type GraphLoader struct {
	// validator performs struct field validation and custom validation
	// rules for graph definitions and their nested components.
	validator *validator.Validate
	// registry provides factory methods for instantiating nodes based
	// on their type and configuration.
	registry ports.NodeRegistry
	// cache stores built graphs indexed by SHA256 hash of the
	// normalized definition to avoid rebuilding identical ones.
	// WARNING: cached graphs MUST NOT be mutated; AddNode and AddEdge
	// must never be called on a cached graph.
	cache map[string]*NodeGraph
	// cacheMu provides thread-safe access to the cache map.
	cacheMu sync.RWMutex
	// sf prevents duplicate graph builds when multiple goroutines
	// request the same definition simultaneously.
	sf singleflight.Group
}

// NewGraphLoader creates a loader with validation capabilities and an
// empty cache. It registers the custom validators used by definition
// struct tags and returns an error if registration fails.
func NewGraphLoader(registry ports.NodeRegistry) (*GraphLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &GraphLoader{
		validator: v,
		registry:  registry,
		cache:     make(map[string]*NodeGraph),
	}, nil
}

// load is the common implementation for loading graphs from byte data,
// using singleflight to collapse concurrent builds of one definition
// and SHA256-based caching across calls.
func (gl *GraphLoader) load(ctx context.Context, data []byte) (*NodeGraph, error) {
	def, err := gl.parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	// Hash the normalized definition, not the raw bytes, so formatting
	// differences do not defeat the cache.
	hash, err := gl.definitionHash(def)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := gl.sf.Do(hash, func() (any, error) {
		if graph, ok := gl.cachedGraph(hash); ok {
			return graph, nil
		}

		if err := gl.validateDefinition(def); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		graph, err := gl.buildGraph(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph: %w", err)
		}

		gl.cacheGraph(hash, graph)
		return graph, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*NodeGraph), nil
}

// LoadFromFile loads and builds a graph from a definition file.
// WARNING: the returned graph is a pointer to a cached instance and
// must not be mutated by the caller.
func (gl *GraphLoader) LoadFromFile(ctx context.Context, path string) (*NodeGraph, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return gl.load(ctx, data)
}

// LoadFromReader loads and builds a graph from any io.Reader, applying
// the same caching and validation as LoadFromFile.
func (gl *GraphLoader) LoadFromReader(ctx context.Context, r io.Reader) (*NodeGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return gl.load(ctx, data)
}

// parse unmarshals definition bytes using strict decoding so unknown
// fields are rejected instead of silently ignored.
func (gl *GraphLoader) parse(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return &def, nil
}

// validateDefinition performs struct field validation followed by
// semantic validation of relationships between definition elements.
func (gl *GraphLoader) validateDefinition(def *GraphDefinition) error {
	if err := gl.validator.Struct(def); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	if err := gl.validateSemantics(def); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}

// validateSemantics enforces rules that cannot be expressed through
// struct tags: node id uniqueness, registered node types, and edge
// endpoint integrity. Port existence and deeper structural checks
// happen against the instantiated graph during build and Validate.
func (gl *GraphLoader) validateSemantics(def *GraphDefinition) error {
	supported := make(map[string]struct{})
	for _, t := range gl.registry.SupportedTypes() {
		supported[t] = struct{}{}
	}

	nodeIDs := make(map[string]struct{}, len(def.Nodes))
	for _, node := range def.Nodes {
		if _, exists := nodeIDs[node.ID]; exists {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		nodeIDs[node.ID] = struct{}{}

		if _, ok := supported[node.Type]; !ok {
			return fmt.Errorf("node %s has unsupported type %q", node.ID, node.Type)
		}
	}

	for _, edge := range def.Edges {
		if _, exists := nodeIDs[edge.FromNode]; !exists {
			return fmt.Errorf("edge references non-existent source node: %s", edge.FromNode)
		}
		if _, exists := nodeIDs[edge.ToNode]; !exists {
			return fmt.Errorf("edge references non-existent target node: %s", edge.ToNode)
		}
	}
	return nil
}

// buildGraph instantiates nodes through the registry in declaration
// order and wires the declared edges, then runs full structural
// validation so a loaded graph is guaranteed executable.
func (gl *GraphLoader) buildGraph(_ context.Context, def *GraphDefinition) (*NodeGraph, error) {
	graph := NewNodeGraph(def.Metadata.Name)

	for _, nodeDef := range def.Nodes {
		node, err := gl.createNode(nodeDef)
		if err != nil {
			return nil, fmt.Errorf("failed to create node %s: %w", nodeDef.ID, err)
		}
		if err := graph.AddNode(node); err != nil {
			return nil, fmt.Errorf("failed to add node to graph: %w", err)
		}
	}

	for _, e := range def.Edges {
		if err := graph.AddEdge(e.toEdge()); err != nil {
			return nil, fmt.Errorf("failed to add edge: %w", err)
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

// createNode decodes a node's flexible YAML config and delegates to the
// registry for type-specific construction.
func (gl *GraphLoader) createNode(def NodeDefinition) (ports.Node, error) {
	config := make(map[string]any)
	if !def.Config.IsZero() {
		if err := def.Config.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return gl.registry.CreateNode(def.Type, def.ID, config)
}

// definitionHash computes the SHA256 hash of a normalized definition
// for cache indexing, so semantically identical definitions hash the
// same regardless of whitespace or key ordering.
func (gl *GraphLoader) definitionHash(def *GraphDefinition) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(def); err != nil {
		return "", fmt.Errorf("failed to encode definition for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// cachedGraph retrieves a previously built graph by hash.
func (gl *GraphLoader) cachedGraph(hash string) (*NodeGraph, bool) {
	gl.cacheMu.RLock()
	defer gl.cacheMu.RUnlock()

	graph, ok := gl.cache[hash]
	return graph, ok
}

// cacheGraph stores a built graph indexed by its definition hash.
func (gl *GraphLoader) cacheGraph(hash string, graph *NodeGraph) {
	gl.cacheMu.Lock()
	defer gl.cacheMu.Unlock()

	gl.cache[hash] = graph
}

// ClearCache removes all cached graphs, forcing subsequent loads to
// rebuild from source.
func (gl *GraphLoader) ClearCache() {
	gl.cacheMu.Lock()
	defer gl.cacheMu.Unlock()

	gl.cache = make(map[string]*NodeGraph)
}
