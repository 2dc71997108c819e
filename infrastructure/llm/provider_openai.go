package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-loom/internal/domain"
)

// OpenAIDefaultModel is the model used when the configuration does not
// name one.
const OpenAIDefaultModel = "gpt-4o-mini"

// openAIProvider implements CoreLLM for OpenAI's chat completion API.
type openAIProvider struct {
	client *openai.Client
	model  string
}

// newOpenAIProvider creates an OpenAI provider, validating that an API
// key is present and applying an optional endpoint override. Request
// timeouts are enforced by the timeout middleware, not here.
func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai API key cannot be empty")
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &openAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// DoRequest translates the neutral messages into OpenAI's format and
// returns the first choice's content.
func (p *openAIProvider) DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error) {
	options := parseRequestOptions(opts, p.model)

	req := openai.ChatCompletionRequest{
		Model:    options.model,
		Messages: buildOpenAIMessages(messages, options.system),
	}
	if options.maxTokens > 0 {
		req.MaxTokens = options.maxTokens
	}
	if options.temperature != nil {
		req.Temperature = float32(*options.temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		status := 0
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		return "", wrapProviderError(options.model, "chat_completion", status, err)
	}

	if len(resp.Choices) == 0 {
		return "", wrapProviderError(options.model, "chat_completion", 0, ErrNoResponseChoice)
	}
	return resp.Choices[0].Message.Content, nil
}

// GetModel returns the configured model identifier.
func (p *openAIProvider) GetModel() string { return p.model }

// buildOpenAIMessages maps roles onto OpenAI's constants, prepending
// the system prompt when one was supplied.
func buildOpenAIMessages(messages []domain.Message, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		case "system":
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
