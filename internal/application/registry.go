package application

import (
	"fmt"
	"sync"

	"github.com/ahrav/go-loom/infrastructure/botgate"
	"github.com/ahrav/go-loom/infrastructure/llm"
	"github.com/ahrav/go-loom/infrastructure/nodes"
	"github.com/ahrav/go-loom/infrastructure/store"
	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.NodeRegistry = (*DefaultNodeRegistry)(nil)

// RegistryDeps carries the shared dependencies injected into node types
// that need them: the LLM client for chat nodes and the message store
// for history lookup and the bot adapter.
type RegistryDeps struct {
	LLMClient    ports.LLMClient
	MessageStore ports.MessageStore
}

// DefaultNodeRegistry implements the NodeRegistry interface providing a
// factory for creating nodes based on type and configuration. It comes
// with every built-in node type pre-registered and supports dynamic
// registration of custom types at process setup.
type DefaultNodeRegistry struct {
	// factories maps node type strings to their factory functions.
	factories map[string]ports.NodeFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
	// deps holds dependencies injected into built-in factories.
	deps RegistryDeps
}

// NewDefaultNodeRegistry creates a registry with the built-in node
// types pre-registered.
func NewDefaultNodeRegistry(deps RegistryDeps) *DefaultNodeRegistry {
	r := &DefaultNodeRegistry{
		factories: make(map[string]ports.NodeFactory),
		deps:      deps,
	}
	r.registerBuiltinFactories()
	return r
}

// registerBuiltinFactories registers the standard node types.
// Factories that need shared dependencies receive them through the
// config map, keeping the factory signature uniform.
func (r *DefaultNodeRegistry) registerBuiltinFactories() {
	deps := r.deps

	r.factories["constant"] = nodes.CreateConstantNode
	r.factories["transform"] = nodes.CreateTransformNode
	r.factories["conditional"] = nodes.CreateConditionalNode
	r.factories["json_parser"] = nodes.CreateJSONParserNode
	r.factories["aggregator"] = nodes.CreateAggregatorNode
	r.factories["delay"] = nodes.CreateDelayNode
	r.factories["ticker"] = nodes.CreateTickerNode

	r.factories["chat"] = func(id string, config map[string]any) (ports.Node, error) {
		config["llm_client"] = deps.LLMClient
		return llm.CreateChatNode(id, config)
	}

	r.factories["message_lookup"] = func(id string, config map[string]any) (ports.Node, error) {
		config["message_store"] = deps.MessageStore
		return store.CreateMessageLookupNode(id, config)
	}
	r.factories["chat_history"] = func(id string, config map[string]any) (ports.Node, error) {
		config["message_store"] = deps.MessageStore
		return store.CreateChatHistoryNode(id, config)
	}

	r.factories["bot_adapter"] = func(id string, config map[string]any) (ports.Node, error) {
		config["message_store"] = deps.MessageStore
		return botgate.CreateAdapterNode(id, config)
	}
}

// CreateNode instantiates a node of the given type with the provided
// identifier and configuration. An unregistered type returns an error
// wrapping domain.ErrUnknownNodeType.
func (r *DefaultNodeRegistry) CreateNode(nodeType, id string, config map[string]any) (ports.Node, error) {
	r.mu.RLock()
	factory, exists := r.factories[nodeType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, nodeType)
	}
	if id == "" {
		return nil, fmt.Errorf("node id cannot be empty")
	}
	if config == nil {
		config = make(map[string]any)
	}

	node, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create node %s of type %s: %w", id, nodeType, err)
	}
	return node, nil
}

// RegisterNodeFactory registers a factory for a node type, replacing
// any previous registration for that type.
func (r *DefaultNodeRegistry) RegisterNodeFactory(nodeType string, factory ports.NodeFactory) error {
	if nodeType == "" {
		return fmt.Errorf("node type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[nodeType] = factory
	return nil
}

// SupportedTypes returns every registered node type.
func (r *DefaultNodeRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}
	return types
}
