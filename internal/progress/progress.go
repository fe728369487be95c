// Package progress carries per-job events from the optimization and
// generation engines to whatever delivers them to the client.
package progress

import (
	"github.com/synthline/synthline/internal/dataset"
	"github.com/synthline/synthline/internal/feature"
)

// Type tags an event variant.
type Type string

const (
	TypeProgress              Type = "progress"
	TypePromptUpdate          Type = "prompt_update"
	TypeOptimizeComplete      Type = "optimize_complete"
	TypeOptimizeCompleteBatch Type = "optimize_complete_batch"
	TypeGenerationComplete    Type = "generation_complete"
	TypeWarning               Type = "warning"
	TypeError                 Type = "error"
)

// Event is the closed set of messages a job can publish. Each variant is
// a struct carrying its own payload; the Type field is fixed by the
// constructor so the wire format is a flat tagged JSON object.
type Event interface {
	EventType() Type
}

// ProgressEvent reports the job's completed fraction in percent (0-100).
type ProgressEvent struct {
	Type     Type    `json:"type"`
	Progress float64 `json:"progress"`
}

func (e *ProgressEvent) EventType() Type { return e.Type }

// NewProgress builds a progress event, clamping to [0, 100].
func NewProgress(percent float64) *ProgressEvent {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return &ProgressEvent{Type: TypeProgress, Progress: percent}
}

// PromptUpdateEvent announces a new best prompt during optimization.
type PromptUpdateEvent struct {
	Type         Type    `json:"type"`
	Prompt       string  `json:"prompt"`
	Score        float64 `json:"score"`
	Iteration    int     `json:"iteration"`
	ConfigIndex  int     `json:"atomic_config_index"`
	TotalConfigs int     `json:"total_configs"`
}

func (e *PromptUpdateEvent) EventType() Type { return e.Type }

// NewPromptUpdate builds a prompt update event.
func NewPromptUpdate(prompt string, score float64, iteration, configIndex, totalConfigs int) *PromptUpdateEvent {
	return &PromptUpdateEvent{
		Type:         TypePromptUpdate,
		Prompt:       prompt,
		Score:        score,
		Iteration:    iteration,
		ConfigIndex:  configIndex,
		TotalConfigs: totalConfigs,
	}
}

// OptimizedResult pairs a configuration with its optimized prompt.
type OptimizedResult struct {
	Config feature.AtomicConfiguration `json:"atomic_config"`
	Prompt string                      `json:"prompt"`
	Score  float64                     `json:"score"`
}

// OptimizeCompleteEvent is the terminal event of a single-configuration
// optimization job.
type OptimizeCompleteEvent struct {
	Type            Type    `json:"type"`
	OptimizedPrompt string  `json:"optimized_prompt"`
	Score           float64 `json:"score"`
}

func (e *OptimizeCompleteEvent) EventType() Type { return e.Type }

// NewOptimizeComplete builds the single-configuration terminal event.
func NewOptimizeComplete(prompt string, score float64) *OptimizeCompleteEvent {
	return &OptimizeCompleteEvent{Type: TypeOptimizeComplete, OptimizedPrompt: prompt, Score: score}
}

// OptimizeCompleteBatchEvent is the terminal event of a multi-configuration
// optimization job.
type OptimizeCompleteBatchEvent struct {
	Type    Type              `json:"type"`
	Results []OptimizedResult `json:"optimized_results"`
}

func (e *OptimizeCompleteBatchEvent) EventType() Type { return e.Type }

// NewOptimizeCompleteBatch builds the batch terminal event.
func NewOptimizeCompleteBatch(results []OptimizedResult) *OptimizeCompleteBatchEvent {
	return &OptimizeCompleteBatchEvent{Type: TypeOptimizeCompleteBatch, Results: results}
}

// GenerationCompleteEvent is the terminal event of a generation job.
type GenerationCompleteEvent struct {
	Type                 Type             `json:"type"`
	Samples              []dataset.Sample `json:"samples"`
	OutputContent        string           `json:"output_content"`
	OutputFormat         string           `json:"output_format"`
	FewerSamplesReceived bool             `json:"fewer_samples_received"`
}

func (e *GenerationCompleteEvent) EventType() Type { return e.Type }

// NewGenerationComplete builds the generation terminal event.
func NewGenerationComplete(samples []dataset.Sample, content, format string, fewer bool) *GenerationCompleteEvent {
	return &GenerationCompleteEvent{
		Type:                 TypeGenerationComplete,
		Samples:              samples,
		OutputContent:        content,
		OutputFormat:         format,
		FewerSamplesReceived: fewer,
	}
}

// WarningEvent reports a recoverable problem (e.g. a skipped optimization
// iteration). It is never terminal.
type WarningEvent struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func (e *WarningEvent) EventType() Type { return e.Type }

// NewWarning builds a warning event.
func NewWarning(message string) *WarningEvent {
	return &WarningEvent{Type: TypeWarning, Message: message}
}

// ErrorEvent is the terminal event of a failed job.
type ErrorEvent struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() Type { return e.Type }

// NewError builds the error terminal event.
func NewError(message string) *ErrorEvent {
	return &ErrorEvent{Type: TypeError, Message: message}
}

// Publisher delivers events for one job. Engines receive a Publisher so
// they stay decoupled from the broker and from job ids.
type Publisher func(Event)

// Discard is a Publisher that drops every event.
func Discard(Event) {}
