package feature

// Descriptor describes one configurable feature for the web UI: its
// display name, control type, options and whether multiple selections
// are allowed. Group features nest their children in Subfeatures.
type Descriptor struct {
	Name        string                `json:"name"`
	Type        string                `json:"feature_type"`
	Options     []string              `json:"options,omitempty"`
	Multiple    bool                  `json:"multiple,omitempty"`
	Subfeatures map[string]Descriptor `json:"subfeatures,omitempty"`
}

// Model returns the static feature tree served to the configuration UI.
func Model() map[string]Descriptor {
	return map[string]Descriptor{
		"ml_task": {
			Name: "Classification",
			Type: "group",
			Subfeatures: map[string]Descriptor{
				"label":            {Name: "Label", Type: "input"},
				"label_definition": {Name: "Label Definition", Type: "input"},
			},
		},
		"artifact": {
			Name: "Requirements Artifact",
			Type: "group",
			Subfeatures: map[string]Descriptor{
				"specification_format": {
					Name:     "Specification Format",
					Type:     "select",
					Options:  []string{"NL", "Constrained NL", "Use Case", "User Story"},
					Multiple: true,
				},
				"specification_level": {
					Name:     "Specification Level",
					Type:     "select",
					Options:  []string{"High", "Detailed"},
					Multiple: true,
				},
				"stakeholder": {
					Name:     "Stakeholder",
					Type:     "select",
					Options:  []string{"End Users", "Business Managers", "Developers", "Regulatory Bodies"},
					Multiple: true,
				},
				"domain":   {Name: "Domain", Type: "input", Multiple: true},
				"language": {Name: "Language", Type: "input", Multiple: true},
			},
		},
		"generator": {
			Name: "Generator",
			Type: "group",
			Subfeatures: map[string]Descriptor{
				"llm": {
					Name:    "LLM",
					Type:    "select",
					Options: []string{"gpt-4o-mini", "gpt-4o", "claude-haiku", "openrouter/deepseek/deepseek-chat", "ollama/llama3.1"},
				},
				"temperature":        {Name: "Temperature", Type: "input"},
				"top_p":              {Name: "Top P", Type: "input"},
				"samples_per_prompt": {Name: "Samples Per Prompt", Type: "input"},
				"prompt_approach": {
					Name:    "Prompt Approach",
					Type:    "select",
					Options: []string{"Default", "PACE"},
				},
				"pace_iterations": {Name: "PACE Iterations", Type: "input"},
				"pace_actors":     {Name: "PACE Actors", Type: "input"},
				"pace_candidates": {Name: "PACE Candidates", Type: "input"},
			},
		},
		"output": {
			Name: "Output",
			Type: "group",
			Subfeatures: map[string]Descriptor{
				"output_format": {
					Name:    "Output Format",
					Type:    "select",
					Options: []string{"JSON", "CSV"},
				},
				"total_samples": {Name: "Total Samples", Type: "input"},
			},
		},
	}
}
