package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ahrav/go-loom/internal/domain"
)

// AnthropicDefaultModel is the model used when the configuration does
// not name one.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

// anthropicProvider implements CoreLLM for Anthropic's Messages API.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

// newAnthropicProvider creates an Anthropic provider, validating that
// an API key is present and applying an optional endpoint override.
func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic API key cannot be empty")
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// DoRequest translates the neutral messages into Anthropic's format and
// concatenates the text blocks of the response.
func (p *anthropicProvider) DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error) {
	options := parseRequestOptions(opts, p.model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.model),
		MaxTokens: int64(options.maxTokens),
		Messages:  buildAnthropicMessages(messages),
	}
	if options.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.system}}
	}
	if options.temperature != nil {
		params.Temperature = anthropic.Float(*options.temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", wrapProviderError(options.model, "messages", status, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", wrapProviderError(options.model, "messages", 0, ErrNoResponseChoice)
	}
	return text.String(), nil
}

// GetModel returns the configured model identifier.
func (p *anthropicProvider) GetModel() string { return p.model }

// buildAnthropicMessages maps each message onto Anthropic's role enum.
// System entries become user messages because Anthropic carries the
// system prompt as a request-level parameter, not a message.
func buildAnthropicMessages(messages []domain.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return out
}
