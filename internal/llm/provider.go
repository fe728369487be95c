package llm

import "context"

// Provider is the abstraction over a single LLM backend. Consumers call
// Complete with a prompt and receive the raw completion text.
type Provider interface {
	// Complete sends a prompt to the LLM and returns the completion.
	Complete(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// Prompt is the user message. Synthline prompts are single-turn.
	Prompt string

	// Temperature controls randomness. Range: 0.0 - 2.0.
	Temperature float64

	// TopP is the nucleus sampling parameter. Range: 0.0 - 1.0.
	// A zero value leaves the provider default in place.
	TopP float64

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int
}

// SamplingParams bundles the user-selected sampling settings applied to
// every generation call of a job.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// Response holds the LLM's output.
type Response struct {
	// Text is the raw completion text.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
