// Package promptline renders generation prompts from atomic configurations.
// Building is a pure function: the same configuration and sample count
// always produce the same prompt string.
package promptline

import (
	"fmt"
	"strings"

	"github.com/synthline/synthline/internal/feature"
)

const singleTemplate = `Generate a requirement that:
1. Is %[1]s (Definition: %[2]s).
2. Is written in %[3]s.
3. Pertains to a %[4]s system.
4. Is written from the perspective of %[5]s.
5. Follows the %[6]s format.
6. Is specified at a %[7]s level.

Output only the requirement text. No additional text or formatting.`

const multiTemplate = `Generate %[8]d diverse requirements that:
1. Are %[1]s (Definition: %[2]s).
2. Are written in %[3]s.
3. Pertain to a %[4]s system.
4. Are written from the perspective of %[5]s.
5. Follow the %[6]s format.
6. Are specified at a %[7]s level.

Format your completion exactly as a JSON array of strings, e.g.:
[
  "1st requirement text",
  "2nd requirement text"
]

Include only the JSON array. No additional text.`

// Build renders the baseline prompt for one atomic configuration asking
// for n samples. With n > 1 the prompt requests a JSON array of strings;
// with n == 1 it requests the bare requirement text.
func Build(cfg feature.AtomicConfiguration, n int) string {
	template := singleTemplate
	if n > 1 {
		template = multiTemplate
	}
	return fmt.Sprintf(template,
		cfg.Label,
		cfg.LabelDefinition,
		cfg.Language,
		cfg.Domain,
		cfg.Stakeholder,
		cfg.SpecificationFormat,
		cfg.SpecificationLevel,
		n,
	)
}

// AtomicPrompt pairs a configuration with its rendered baseline prompt.
// Used by the prompt preview endpoint and as PACE's generation-0 candidate.
type AtomicPrompt struct {
	Config feature.AtomicConfiguration `json:"config"`
	Prompt string                      `json:"prompt"`
}

// BuildAll renders the baseline prompt for every configuration, in order.
func BuildAll(configs []feature.AtomicConfiguration, n int) []AtomicPrompt {
	prompts := make([]AtomicPrompt, len(configs))
	for i, cfg := range configs {
		prompts[i] = AtomicPrompt{Config: cfg, Prompt: Build(cfg, n)}
	}
	return prompts
}

// Expectations renders the per-sample requirement criteria as a bulleted
// list. The critic prompt embeds it when judging actor output.
func Expectations(cfg feature.AtomicConfiguration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Be %s (Definition: %s).\n", cfg.Label, cfg.LabelDefinition)
	fmt.Fprintf(&b, "- Be written in %s.\n", cfg.Language)
	fmt.Fprintf(&b, "- Pertain to a %s system.\n", cfg.Domain)
	fmt.Fprintf(&b, "- Be written from the perspective of %s.\n", cfg.Stakeholder)
	fmt.Fprintf(&b, "- Follow the %s format.\n", cfg.SpecificationFormat)
	fmt.Fprintf(&b, "- Be specified at a %s level.", cfg.SpecificationLevel)
	return b.String()
}
