package store

import (
	"context"
	"time"
)

// RequestEventData captures a single LLM API call.
type RequestEventData struct {
	Backend      string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data RequestEventData) error
}

// Run records one completed (or failed) generation or optimization job.
type Run struct {
	ID          int
	CreatedAt   time.Time
	JobID       string
	Kind        string // "generation" or "optimization"
	Model       string
	Label       string
	ConfigCount int
	SampleCount int
	Fewer       bool
	DurationMs  int64
	Status      string // "completed", "failed", "cancelled"
	OutputPath  string
}

// RunRepo manages run history.
type RunRepo interface {
	// Save stores a run record.
	Save(ctx context.Context, run *Run) error

	// Recent returns the most recent runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
}
