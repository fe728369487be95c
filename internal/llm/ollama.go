package llm

// Ollama serves an OpenAI-compatible API locally, so the OpenAI SDK is
// reused with the runtime's base URL. No API key is required; the SDK
// insists on a non-empty one, so a placeholder is passed.

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// OllamaProvider targets a self-hosted Ollama runtime.
type OllamaProvider struct {
	*OpenAIProvider
}

// NewOllamaProvider creates a provider for the local runtime. The model
// name arrives with its "ollama/" routing prefix already stripped.
func NewOllamaProvider(cfg OllamaConfig, model string) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	inner, err := NewOpenAIProvider(OpenAIConfig{APIKey: "ollama", BaseURL: baseURL}, model)
	if err != nil {
		return nil, err
	}
	inner.model = model

	return &OllamaProvider{OpenAIProvider: inner}, nil
}
