// Package generator orchestrates dataset generation: it allocates the
// requested sample count across atomic configurations, issues completion
// calls until each allocation is met, and degrades to a partial dataset
// when a backend keeps under-delivering.
package generator

import (
	"context"
	"fmt"

	"github.com/synthline/synthline/internal/dataset"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/progress"
	"github.com/synthline/synthline/internal/promptline"
)

// SamplesClient is the slice of the LLM gateway the orchestrator needs.
// *llm.Gateway satisfies it.
type SamplesClient interface {
	Samples(ctx context.Context, model, prompt string, sampling llm.SamplingParams, n int) (*llm.SampleBatch, error)
}

// Config holds the generation knobs.
type Config struct {
	Model    string
	Sampling llm.SamplingParams

	// MaxConsecutiveShortfalls bounds how many calls in a row may come
	// back short (or fail) for one configuration before the orchestrator
	// gives up on it. A full batch resets the counter.
	MaxConsecutiveShortfalls int
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{MaxConsecutiveShortfalls: 3}
}

// Result is the outcome of a generation run.
type Result struct {
	Samples []dataset.Sample

	// FewerSamplesReceived is set when any call delivered fewer samples
	// than requested, even if later calls made up the difference.
	FewerSamplesReceived bool
}

// Orchestrator drives generation across a list of prompts.
type Orchestrator struct {
	gw  SamplesClient
	cfg Config
}

// New creates an Orchestrator.
func New(gw SamplesClient, cfg Config) *Orchestrator {
	if cfg.MaxConsecutiveShortfalls < 1 {
		cfg.MaxConsecutiveShortfalls = DefaultConfig().MaxConsecutiveShortfalls
	}
	return &Orchestrator{gw: gw, cfg: cfg}
}

// Allocate splits total evenly across n configurations, handing the
// remainder to the earliest ones. Allocations sum to total.
func Allocate(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	base, rem := total/n, total%n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// Generate produces at least the allocated sample count for every prompt,
// or as much as the backend delivers. Each call asks for the prompt's
// full per-prompt count (the prompt text is fixed), and every returned
// sample is kept, so a run can finish with more samples than requested.
//
// Cancelling ctx stops new calls; the call in flight is allowed to finish
// and its samples are kept. Fatal provider errors abort the run.
func (o *Orchestrator) Generate(ctx context.Context, prompts []promptline.AtomicPrompt, total int, publish progress.Publisher) (*Result, error) {
	if publish == nil {
		publish = progress.Discard
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts to generate from")
	}
	if total < 1 {
		return nil, fmt.Errorf("sample count must be positive, got %d", total)
	}

	targets := Allocate(total, len(prompts))
	res := &Result{}
	collected := 0

	for i, ap := range prompts {
		target := targets[i]
		if target == 0 {
			continue
		}

		perCall := ap.Config.SamplesPerPrompt
		if perCall < 1 {
			perCall = 1
		}

		got := 0
		shortfalls := 0
		for got < target {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			// The in-flight call survives cancellation; the loop
			// condition above is the only cancellation point.
			callCtx := llm.WithPurpose(context.WithoutCancel(ctx), "generation")
			batch, err := o.gw.Samples(callCtx, o.cfg.Model, ap.Prompt, o.cfg.Sampling, perCall)
			if err != nil {
				if llm.IsFatal(err) {
					return res, err
				}
				publish(progress.NewWarning(fmt.Sprintf("generation call failed for configuration %d: %v", i, err)))
				res.FewerSamplesReceived = true
				shortfalls++
				if shortfalls >= o.cfg.MaxConsecutiveShortfalls {
					break
				}
				continue
			}

			for _, text := range batch.Texts {
				res.Samples = append(res.Samples, dataset.Sample{
					Text:     text,
					Label:    ap.Config.Label,
					Domain:   ap.Config.Domain,
					Language: ap.Config.Language,
				})
			}
			got += len(batch.Texts)
			collected += len(batch.Texts)

			if batch.Shortfall() > 0 {
				res.FewerSamplesReceived = true
				shortfalls++
				if shortfalls >= o.cfg.MaxConsecutiveShortfalls {
					break
				}
			} else {
				shortfalls = 0
			}

			publish(progress.NewProgress(runFraction(collected, total, got >= target, i, len(prompts))))
		}

		if got < target {
			publish(progress.NewWarning(fmt.Sprintf(
				"configuration %d: received %d of %d samples after %d consecutive short calls",
				i, got, target, o.cfg.MaxConsecutiveShortfalls)))
		}
	}

	if len(res.Samples) == 0 {
		return nil, fmt.Errorf("generation produced no samples")
	}
	if len(res.Samples) < total {
		res.FewerSamplesReceived = true
	}

	publish(progress.NewProgress(100))
	return res, nil
}

// runFraction reports overall percent complete, holding back 100 until
// the last configuration has met its allocation.
func runFraction(collected, total int, configDone bool, configIndex, configCount int) float64 {
	pct := float64(collected) / float64(total) * 100
	if pct >= 100 && !(configDone && configIndex == configCount-1) {
		pct = 99
	}
	return pct
}
