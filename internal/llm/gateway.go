package llm

import (
	"context"
	"sync"

	"github.com/synthline/synthline/internal/store"
)

// Gateway is the uniform entry point for all LLM calls. It resolves the
// selected model to a backend, builds (and caches) the matching provider
// wrapped with logging and retry middleware, and parses completions into
// samples.
type Gateway struct {
	cfg    Config
	events store.EventRepo // nil disables event logging

	mu        sync.Mutex
	providers map[string]Provider
}

// NewGateway creates a Gateway. events may be nil.
func NewGateway(cfg Config, events store.EventRepo) *Gateway {
	return &Gateway{
		cfg:       cfg,
		events:    events,
		providers: make(map[string]Provider),
	}
}

// Register installs a pre-built provider for model, bypassing backend
// resolution. Registered providers get no retry or logging middleware.
func (g *Gateway) Register(model string, p Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.providers[model] = p
}

// provider returns the cached provider for model, constructing it on
// first use. Construction failures (missing key, unsupported model)
// surface as ErrProvider.
func (g *Gateway) provider(ctx context.Context, model string) (Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.providers[model]; ok {
		return p, nil
	}

	backend, err := ResolveBackend(model)
	if err != nil {
		return nil, err
	}

	var base Provider
	switch backend.Kind {
	case KindLocal:
		base, err = NewOllamaProvider(g.cfg.Ollama, backend.Model)
	case KindHostedAlternative:
		base, err = NewOpenRouterProvider(g.cfg.OpenRouter, backend.Model)
	case KindHosted:
		switch backend.family {
		case familyAnthropic:
			base, err = NewAnthropicProvider(g.cfg.Anthropic, backend.Model)
		case familyGemini:
			base, err = NewGeminiProvider(ctx, g.cfg.Gemini, backend.Model)
		default:
			base, err = NewOpenAIProvider(g.cfg.OpenAI, backend.Model)
		}
	}
	if err != nil {
		return nil, err
	}

	// Middleware order: caller → retry → logging → base.
	p := base
	if g.events != nil {
		p = WithLogging(p, backend.Kind.String(), g.events)
	}
	p = WithRetry(p, g.cfg.Retry)

	g.providers[model] = p
	return p, nil
}

// Complete issues one completion call and returns the raw text.
func (g *Gateway) Complete(ctx context.Context, model, prompt string, sampling SamplingParams) (string, error) {
	p, err := g.provider(ctx, model)
	if err != nil {
		return "", err
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, err := p.Complete(ctx, Request{
		Prompt:      prompt,
		Temperature: sampling.Temperature,
		TopP:        sampling.TopP,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// SampleBatch is the parsed result of one generation call.
type SampleBatch struct {
	// Texts are the parsed sample texts, in completion order.
	Texts []string

	// Requested is how many samples the call asked for. len(Texts) <
	// Requested is a count mismatch, not an error: the caller decides
	// how to proceed.
	Requested int
}

// Shortfall reports how many samples short of the request the batch is.
func (b *SampleBatch) Shortfall() int {
	if missing := b.Requested - len(b.Texts); missing > 0 {
		return missing
	}
	return 0
}

// Samples issues one completion call asking for n samples and parses the
// completion into individual texts.
func (g *Gateway) Samples(ctx context.Context, model, prompt string, sampling SamplingParams, n int) (*SampleBatch, error) {
	text, err := g.Complete(ctx, model, prompt, sampling)
	if err != nil {
		return nil, err
	}
	return &SampleBatch{
		Texts:     ParseSamples(text, n),
		Requested: n,
	}, nil
}
