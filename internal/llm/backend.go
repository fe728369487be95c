package llm

import (
	"fmt"
	"strings"
)

// ProviderKind is the closed set of backend categories. A model name
// resolves to exactly one kind, once, before any call is issued.
type ProviderKind int

const (
	// KindHosted is a commercial hosted API (OpenAI, Anthropic, Gemini),
	// selected by matching the model name against known model sets.
	KindHosted ProviderKind = iota

	// KindHostedAlternative is the OpenRouter aggregator, designated by
	// the "openrouter/" model name prefix.
	KindHostedAlternative

	// KindLocal is a self-hosted Ollama runtime, designated by the
	// "ollama/" model name prefix.
	KindLocal
)

func (k ProviderKind) String() string {
	switch k {
	case KindHosted:
		return "hosted"
	case KindHostedAlternative:
		return "hosted-alternative"
	case KindLocal:
		return "local"
	}
	return "unknown"
}

// hostedFamily identifies the concrete hosted API within KindHosted.
type hostedFamily int

const (
	familyOpenAI hostedFamily = iota
	familyAnthropic
	familyGemini
)

// Backend is a resolved model: its kind, the concrete model name with any
// routing prefix stripped, and (for hosted) the API family.
type Backend struct {
	Kind   ProviderKind
	Model  string
	family hostedFamily
}

// ResolveBackend maps a user-selected model identifier to a Backend.
// "ollama/<model>" routes to the local runtime, "openrouter/<model>" to
// the alternative hosted API; anything else is matched against the known
// hosted model sets, defaulting to OpenAI (the original set of hosted
// model names is open-ended there).
func ResolveBackend(model string) (Backend, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Backend{}, &ErrProvider{Err: fmt.Errorf("no model selected")}
	}

	if name, ok := strings.CutPrefix(model, "ollama/"); ok {
		if name == "" {
			return Backend{}, &ErrProvider{Err: fmt.Errorf("empty ollama model name")}
		}
		return Backend{Kind: KindLocal, Model: name}, nil
	}

	if name, ok := strings.CutPrefix(model, "openrouter/"); ok {
		if name == "" {
			return Backend{}, &ErrProvider{Err: fmt.Errorf("empty openrouter model name")}
		}
		return Backend{Kind: KindHostedAlternative, Model: name}, nil
	}

	name := strings.TrimPrefix(model, "openai/")

	switch {
	case matchesModelSet(name, anthropicModels, "claude"):
		return Backend{Kind: KindHosted, Model: resolveModel(name, anthropicModels), family: familyAnthropic}, nil
	case matchesModelSet(name, geminiModels, "gemini"):
		return Backend{Kind: KindHosted, Model: resolveModel(name, geminiModels), family: familyGemini}, nil
	default:
		return Backend{Kind: KindHosted, Model: resolveModel(name, openaiModels), family: familyOpenAI}, nil
	}
}

// matchesModelSet reports whether name is in the friendly-name set or
// carries the family's model name prefix.
func matchesModelSet(name string, models map[string]string, prefix string) bool {
	if _, ok := models[name]; ok {
		return true
	}
	return strings.HasPrefix(name, prefix)
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	// If not in the map, use as-is (allows direct model IDs).
	return name
}
