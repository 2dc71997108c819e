package llm

// requestOptions are the provider-neutral knobs extracted from the
// options map a chat node passes through Complete.
type requestOptions struct {
	model       string
	system      string
	maxTokens   int
	temperature *float64
}

// defaultMaxTokens bounds completions when the caller does not specify
// a budget.
const defaultMaxTokens = 1024

// parseRequestOptions extracts the supported options, falling back to
// the provider's configured model. Unknown keys are ignored so node
// configs can carry provider-specific extras harmlessly.
func parseRequestOptions(opts map[string]any, defaultModel string) requestOptions {
	out := requestOptions{model: defaultModel, maxTokens: defaultMaxTokens}

	if m, ok := opts["model"].(string); ok && m != "" {
		out.model = m
	}
	if s, ok := opts["system"].(string); ok {
		out.system = s
	}
	switch v := opts["max_tokens"].(type) {
	case int:
		if v > 0 {
			out.maxTokens = v
		}
	case int64:
		if v > 0 {
			out.maxTokens = int(v)
		}
	}
	switch v := opts["temperature"].(type) {
	case float64:
		if v >= 0 && v <= 2 {
			out.temperature = &v
		}
	case int:
		f := float64(v)
		if f >= 0 && f <= 2 {
			out.temperature = &f
		}
	}
	return out
}
