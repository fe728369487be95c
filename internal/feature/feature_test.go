package feature

import (
	"encoding/json"
	"errors"
	"testing"
)

func baseSelection() Selection {
	return Selection{
		Label:               "Security",
		LabelDefinition:     "Concerns protection of data and access control",
		SpecificationFormat: Values{"NL"},
		SpecificationLevel:  Values{"High"},
		Stakeholder:         Values{"End Users"},
		Domain:              Values{"Banking"},
		Language:            Values{"English"},
	}
}

func TestExpand_SingleValuedYieldsOne(t *testing.T) {
	configs, err := Expand(baseSelection(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected 1 configuration, got %d", len(configs))
	}
	if configs[0].Domain != "Banking" || configs[0].SamplesPerPrompt != 5 {
		t.Fatalf("unexpected configuration: %+v", configs[0])
	}
}

func TestExpand_TwoDomainsYieldsTwoOrdered(t *testing.T) {
	sel := baseSelection()
	sel.Domain = Values{"Banking", "Healthcare"}

	configs, err := Expand(sel, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configurations, got %d", len(configs))
	}
	if configs[0].Domain != "Banking" || configs[1].Domain != "Healthcare" {
		t.Fatalf("expected Banking first, got %q then %q", configs[0].Domain, configs[1].Domain)
	}
}

func TestExpand_CardinalityIsProduct(t *testing.T) {
	sel := baseSelection()
	sel.SpecificationFormat = Values{"NL", "Use Case"}
	sel.SpecificationLevel = Values{"High", "Detailed"}
	sel.Domain = Values{"Banking", "Healthcare", "Automotive"}

	configs, err := Expand(sel, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 12 {
		t.Fatalf("expected 12 configurations, got %d", len(configs))
	}

	// Every combination must be unique.
	seen := make(map[AtomicConfiguration]bool)
	for _, c := range configs {
		if seen[c] {
			t.Fatalf("duplicate configuration: %+v", c)
		}
		seen[c] = true
	}
}

func TestExpand_Deterministic(t *testing.T) {
	sel := baseSelection()
	sel.Domain = Values{"Banking", "Healthcare"}
	sel.Language = Values{"English", "German"}

	first, err := Expand(sel, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Expand(sel, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expansion not deterministic at index %d", i)
		}
	}

	// Last dimension (language) varies fastest.
	if first[0].Language != "English" || first[1].Language != "German" {
		t.Fatalf("unexpected language order: %q then %q", first[0].Language, first[1].Language)
	}
	if first[0].Domain != "Banking" || first[2].Domain != "Healthcare" {
		t.Fatalf("unexpected domain order")
	}
}

func TestExpand_MissingDimensionRejected(t *testing.T) {
	sel := baseSelection()
	sel.Language = nil

	_, err := Expand(sel, 1)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Dimension != "language" {
		t.Fatalf("expected language dimension, got %q", cfgErr.Dimension)
	}
}

func TestExpand_MissingLabelRejected(t *testing.T) {
	sel := baseSelection()
	sel.Label = "  "

	_, err := Expand(sel, 1)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestValues_UnmarshalForms(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`["Banking","Healthcare"]`, []string{"Banking", "Healthcare"}},
		{`"Banking"`, []string{"Banking"}},
		{`"Banking, Healthcare , "`, []string{"Banking", "Healthcare"}},
		{`""`, nil},
	}

	for _, tc := range cases {
		var v Values
		if err := json.Unmarshal([]byte(tc.in), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if len(v) != len(tc.want) {
			t.Fatalf("unmarshal %s: got %v, want %v", tc.in, v, tc.want)
		}
		for i := range v {
			if v[i] != tc.want[i] {
				t.Fatalf("unmarshal %s: got %v, want %v", tc.in, v, tc.want)
			}
		}
	}
}
