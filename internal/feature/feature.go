// Package feature defines the Synthline feature model and the expansion of
// a feature selection into atomic configurations.
package feature

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Values holds the selected value(s) for a multi-select dimension.
// It unmarshals from either a JSON array of strings or a single string,
// where a single string may carry comma-separated values (the form the
// web UI submits for free-text dimensions like domain and language).
type Values []string

// UnmarshalJSON accepts ["a","b"], "a" and "a, b".
func (v *Values) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*v = out
	return nil
}

// Selection is a user's choice across the feature model: scalar
// classification fields plus one-or-many values per artifact dimension.
type Selection struct {
	Label           string `json:"label"`
	LabelDefinition string `json:"label_definition"`

	SpecificationFormat Values `json:"specification_format"`
	SpecificationLevel  Values `json:"specification_level"`
	Stakeholder         Values `json:"stakeholder"`
	Domain              Values `json:"domain"`
	Language            Values `json:"language"`
}

// AtomicConfiguration is one concrete combination: exactly one value per
// dimension plus the scalar classification fields and the per-prompt
// sample count. Immutable once created by Expand.
type AtomicConfiguration struct {
	Label           string `json:"label"`
	LabelDefinition string `json:"label_definition"`

	SpecificationFormat string `json:"specification_format"`
	SpecificationLevel  string `json:"specification_level"`
	Stakeholder         string `json:"stakeholder"`
	Domain              string `json:"domain"`
	Language            string `json:"language"`

	SamplesPerPrompt int `json:"samples_per_prompt"`
}

// ConfigurationError reports a selection that cannot be expanded.
type ConfigurationError struct {
	Dimension string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Dimension, e.Reason)
}

// dimensions lists the multi-select dimensions in canonical expansion
// order. The order is fixed so identical selections always expand to
// identically ordered configurations.
var dimensions = []string{
	"specification_format",
	"specification_level",
	"stakeholder",
	"domain",
	"language",
}

func (s Selection) values(dim string) Values {
	switch dim {
	case "specification_format":
		return s.SpecificationFormat
	case "specification_level":
		return s.SpecificationLevel
	case "stakeholder":
		return s.Stakeholder
	case "domain":
		return s.Domain
	case "language":
		return s.Language
	}
	return nil
}

// Validate checks that every required dimension has at least one value.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Label) == "" {
		return &ConfigurationError{Dimension: "label", Reason: "required value is empty"}
	}
	for _, dim := range dimensions {
		if len(s.values(dim)) == 0 {
			return &ConfigurationError{Dimension: dim, Reason: "at least one value is required"}
		}
	}
	return nil
}

// Expand produces the cartesian product of the selection's dimensions as
// an ordered list of atomic configurations. Dimensions expand in canonical
// order with the last dimension varying fastest; within a dimension,
// values keep the order supplied by the caller. The count is the product
// of the per-dimension cardinalities.
func Expand(sel Selection, samplesPerPrompt int) ([]AtomicConfiguration, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	total := 1
	for _, dim := range dimensions {
		total *= len(sel.values(dim))
	}

	configs := make([]AtomicConfiguration, 0, total)
	indices := make([]int, len(dimensions))

	for {
		cfg := AtomicConfiguration{
			Label:               sel.Label,
			LabelDefinition:     sel.LabelDefinition,
			SpecificationFormat: sel.SpecificationFormat[indices[0]],
			SpecificationLevel:  sel.SpecificationLevel[indices[1]],
			Stakeholder:         sel.Stakeholder[indices[2]],
			Domain:              sel.Domain[indices[3]],
			Language:            sel.Language[indices[4]],
			SamplesPerPrompt:    samplesPerPrompt,
		}
		configs = append(configs, cfg)

		// Advance the odometer, last dimension fastest.
		i := len(dimensions) - 1
		for i >= 0 {
			indices[i]++
			if indices[i] < len(sel.values(dimensions[i])) {
				break
			}
			indices[i] = 0
			i--
		}
		if i < 0 {
			break
		}
	}

	return configs, nil
}
