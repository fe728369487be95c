package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Multi-sample prompts ask the model for a JSON array of strings. The
// extracted array is checked against this schema before being accepted.
var samplesSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	def := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://samples.json", def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile("schema://samples.json")
})

// ParseSamples splits a completion into individual sample texts. When more
// than one sample was requested, the completion is expected to carry a
// JSON array of strings; otherwise the whole completion is the sample.
// A malformed array degrades to treating the completion as one sample —
// returning fewer samples than requested is the caller's signal, never an
// error here.
func ParseSamples(text string, expected int) []string {
	if expected > 1 {
		if samples := parseJSONArray(text); len(samples) > 0 {
			return samples
		}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}

// parseJSONArray extracts a JSON array of strings from text that may
// carry surrounding prose or markdown fencing.
func parseJSONArray(text string) []string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	raw := text[start : end+1]

	if out := decodeStringArray(raw); out != nil {
		return out
	}

	// Common model formatting slips: doubled or escaped quotes.
	cleaned := strings.ReplaceAll(raw, `\"`, `"`)
	cleaned = strings.ReplaceAll(cleaned, `""`, `"`)
	return decodeStringArray(cleaned)
}

func decodeStringArray(raw string) []string {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}

	schema, err := samplesSchema()
	if err != nil {
		return nil
	}
	if err := schema.Validate(parsed); err != nil {
		return nil
	}

	items, ok := parsed.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
