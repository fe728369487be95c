package llm

import "fmt"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider wraps OpenAIProvider with OpenRouter-specific
// defaults. OpenRouter exposes an OpenAI-compatible API, so the
// underlying SDK is reused.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
// The model name arrives with its "openrouter/" routing prefix already
// stripped by backend resolution.
func NewOpenRouterProvider(cfg OpenRouterConfig, model string) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ErrProvider{Err: fmt.Errorf("openrouter API key is required")}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}

	inner, err := NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: baseURL}, model)
	if err != nil {
		return nil, err
	}
	// OpenRouter model IDs already carry their own provider prefix;
	// bypass the OpenAI friendly-name map.
	inner.model = model

	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}
