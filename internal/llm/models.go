package llm

import (
	"context"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// ListModels queries the configured hosted backends for their available
// model ids. OpenRouter ids get the "openrouter/" routing prefix so the
// returned names feed straight back into backend resolution. Backends
// without credentials are skipped; an error is returned only when no
// backend could be queried.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	var models []string
	var lastErr error
	queried := false

	if g.cfg.OpenAI.APIKey != "" {
		queried = true
		ids, err := listOpenAICompatible(ctx, g.cfg.OpenAI.APIKey, g.cfg.OpenAI.BaseURL)
		if err != nil {
			lastErr = fmt.Errorf("openai: %w", err)
		} else {
			models = append(models, ids...)
		}
	}

	if g.cfg.OpenRouter.APIKey != "" {
		queried = true
		baseURL := g.cfg.OpenRouter.BaseURL
		if baseURL == "" {
			baseURL = defaultOpenRouterBaseURL
		}
		ids, err := listOpenAICompatible(ctx, g.cfg.OpenRouter.APIKey, baseURL)
		if err != nil {
			lastErr = fmt.Errorf("openrouter: %w", err)
		} else {
			for _, id := range ids {
				models = append(models, "openrouter/"+id)
			}
		}
	}

	if !queried {
		return nil, &ErrProvider{Err: fmt.Errorf("no hosted backend credentials configured")}
	}
	if len(models) == 0 && lastErr != nil {
		return nil, lastErr
	}

	sort.Strings(models)
	return models, nil
}

func listOpenAICompatible(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	list, err := openai.NewClientWithConfig(config).ListModels(ctx)
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
