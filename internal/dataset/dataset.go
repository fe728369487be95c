// Package dataset defines the generated sample record and its JSON/CSV
// serializations.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Sample is one generated text with the configuration facets it was
// generated under, denormalized for training-set use.
type Sample struct {
	Text     string `json:"text"`
	Label    string `json:"label"`
	Domain   string `json:"domain"`
	Language string `json:"language"`
}

// Format selects the output serialization.
type Format string

const (
	FormatJSON Format = "JSON"
	FormatCSV  Format = "CSV"
)

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "JSON", "":
		return FormatJSON, nil
	case "CSV":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported output format: %q", s)
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == FormatCSV {
		return ".csv"
	}
	return ".json"
}

// Encode serializes samples in the given format. The record layout is
// exactly {text, label, domain, language} in both serializations.
func Encode(samples []Sample, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(samples)
	case FormatCSV:
		return encodeCSV(samples)
	}
	return nil, fmt.Errorf("unsupported output format: %q", format)
}

func encodeJSON(samples []Sample) ([]byte, error) {
	if samples == nil {
		samples = []Sample{}
	}
	return json.MarshalIndent(samples, "", "  ")
}

func encodeCSV(samples []Sample) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"text", "label", "domain", "language"}); err != nil {
		return nil, err
	}
	for _, s := range samples {
		if err := w.Write([]string{s.Text, s.Label, s.Domain, s.Language}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
