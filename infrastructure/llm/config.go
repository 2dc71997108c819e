package llm

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ClientConfig holds provider selection and connection settings for
// building an LLM client.
type ClientConfig struct {
	// Provider selects the backend: "openai" or "anthropic".
	Provider string
	// APIKey authenticates with the provider. Required.
	APIKey string
	// Model overrides the provider's default model when non-empty.
	Model string
	// BaseURL overrides the provider endpoint, for proxies and
	// compatible self-hosted backends.
	BaseURL string
	// Timeout enables the timeout middleware when positive, bounding
	// each request with a context deadline.
	Timeout time.Duration
	// RequestsPerSecond enables the rate limit middleware when
	// positive.
	RequestsPerSecond float64
	// Burst is the token bucket depth for the rate limiter.
	Burst int
	// MaxRetries enables the retry middleware when positive, bounding
	// the additional attempts after the first.
	MaxRetries int
	// RetryBaseDelay and RetryMaxDelay shape the retry backoff. Zero
	// values use the middleware defaults.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// BreakerFailures enables the circuit breaker middleware when
	// positive, opening the circuit after that many consecutive
	// failures.
	BreakerFailures int
	// BreakerCooldown is how long an open circuit rejects requests
	// before probing recovery. Zero uses the middleware default.
	BreakerCooldown time.Duration
}

// defaultBreakerCooldown applies when BreakerFailures is set without a
// cooldown.
const defaultBreakerCooldown = 30 * time.Second

// Package-level validator instance for configuration validation.
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

// newProvider dispatches on the configured provider name.
func newProvider(config ClientConfig) (CoreLLM, error) {
	switch config.Provider {
	case "openai":
		return newOpenAIProvider(config)
	case "anthropic":
		return newAnthropicProvider(config)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", config.Provider)
	}
}
