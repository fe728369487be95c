// Package pace implements actor-critic prompt optimization: generate
// samples with the current prompt (actor), critique them against the
// configuration's criteria (critic), rewrite the prompt from the
// critique, and keep the rewrite only when its samples score better.
package pace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/synthline/synthline/internal/feature"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/progress"
	"github.com/synthline/synthline/internal/promptline"
)

// Completer is the slice of the LLM gateway the optimizer needs.
// *llm.Gateway satisfies it.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, sampling llm.SamplingParams) (string, error)
	Samples(ctx context.Context, model, prompt string, sampling llm.SamplingParams, n int) (*llm.SampleBatch, error)
}

// Config holds the optimization knobs.
type Config struct {
	// Iterations is the number of critique-rewrite rounds per
	// configuration.
	Iterations int

	// Actors is how many generation calls feed the critic each round.
	// More actors give the critic more evidence at more cost.
	Actors int

	// Candidates is how many rewritten prompts each round proposes.
	Candidates int

	// SamplesPerPrompt is how many samples each scoring call asks for.
	SamplesPerPrompt int

	Model    string
	Sampling llm.SamplingParams
}

// DefaultConfig returns the optimization defaults.
func DefaultConfig() Config {
	return Config{
		Iterations:       3,
		Actors:           1,
		Candidates:       2,
		SamplesPerPrompt: 5,
	}
}

// Candidate is one rewritten prompt and the score of its trial samples.
type Candidate struct {
	Prompt string
	Score  float64
}

// IterationRecord captures one completed critique-rewrite round.
type IterationRecord struct {
	Iteration  int
	Feedback   string
	Candidates []Candidate
	Improved   bool
}

// Result is the outcome of optimizing one configuration.
type Result struct {
	Config  feature.AtomicConfiguration
	Prompt  string
	Score   float64
	History []IterationRecord
}

// Optimizer runs the actor-critic loop over atomic configurations.
type Optimizer struct {
	gw     Completer
	scorer Scorer
	cfg    Config
}

// New creates an Optimizer. A nil scorer falls back to LexicalDiversity.
func New(gw Completer, scorer Scorer, cfg Config) *Optimizer {
	if scorer == nil {
		scorer = LexicalDiversity{}
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Actors < 1 {
		cfg.Actors = 1
	}
	if cfg.Candidates < 1 {
		cfg.Candidates = 1
	}
	if cfg.SamplesPerPrompt < 1 {
		cfg.SamplesPerPrompt = 1
	}
	return &Optimizer{gw: gw, scorer: scorer, cfg: cfg}
}

const criticTemplate = `You are a critic reviewing requirements produced by a generation prompt.

Each requirement must:
%s

Generated requirements:
%s

Point out every way the requirements fall short of the criteria above, and
any lack of diversity between them. Respond with terse, actionable
feedback only. No praise, no preamble.`

const rewriteTemplate = `You are improving a prompt for generating software requirements.

Current prompt:
---
%s
---

Critic feedback on its output:
---
%s
---

Write %d improved variants of the prompt that address the feedback while
keeping every constraint of the current prompt intact.

Format your completion exactly as a JSON array of strings, one variant
per element. Include only the JSON array. No additional text.`

// Optimize runs the loop for a single configuration. Transient call
// failures skip the round with a warning; fatal provider errors and
// cancellation abort. The returned prompt is never worse than the
// baseline under the configured scorer.
func (o *Optimizer) Optimize(ctx context.Context, cfg feature.AtomicConfiguration, publish progress.Publisher) (*Result, error) {
	if publish == nil {
		publish = progress.Discard
	}

	var iterDone atomic.Int64
	step := func() {
		publish(progress.NewProgress(float64(iterDone.Add(1)) / float64(o.cfg.Iterations) * 100))
	}
	return o.optimizeOne(ctx, cfg, publish, step, 0, 1)
}

func (o *Optimizer) optimizeOne(ctx context.Context, cfg feature.AtomicConfiguration, publish progress.Publisher, step func(), configIndex, totalConfigs int) (*Result, error) {
	if publish == nil {
		publish = progress.Discard
	}
	if step == nil {
		step = func() {}
	}

	best := promptline.Build(cfg, o.cfg.SamplesPerPrompt)
	bestScore, err := o.scorePrompt(ctx, best)
	if err != nil {
		if abortWorthy(ctx, err) {
			return nil, err
		}
		publish(progress.NewWarning(fmt.Sprintf("scoring baseline prompt failed: %v", err)))
		bestScore = 0
	}

	var history []IterationRecord
	for iter := 1; iter <= o.cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		round, err := o.round(ctx, cfg, best, bestScore)
		if err != nil {
			if abortWorthy(ctx, err) {
				return nil, err
			}
			publish(progress.NewWarning(fmt.Sprintf("optimization iteration %d skipped: %v", iter, err)))
			step()
			continue
		}

		record := IterationRecord{Iteration: iter, Feedback: round.feedback, Candidates: round.candidates}
		if round.improved != "" {
			best, bestScore = round.improved, round.score
			record.Improved = true
		}
		// Every round that evaluated candidates reports the current best,
		// improved or not, so the client always sees the live prompt.
		if len(round.candidates) > 0 {
			publish(progress.NewPromptUpdate(best, bestScore, iter, configIndex, totalConfigs))
		}
		history = append(history, record)
		step()
	}

	return &Result{Config: cfg, Prompt: best, Score: bestScore, History: history}, nil
}

// roundOutcome is what one critique-rewrite cycle produced. improved is
// "" when no candidate beat the incumbent.
type roundOutcome struct {
	feedback   string
	candidates []Candidate
	improved   string
	score      float64
}

// round runs one actor-critic-rewrite cycle. Ties go to the incumbent,
// and among candidates to the earliest.
func (o *Optimizer) round(ctx context.Context, cfg feature.AtomicConfiguration, current string, currentScore float64) (*roundOutcome, error) {
	actorCtx := llm.WithPurpose(ctx, "pace_actor")
	var actorTexts []string
	for a := 0; a < o.cfg.Actors; a++ {
		batch, err := o.gw.Samples(actorCtx, o.cfg.Model, current, o.cfg.Sampling, o.cfg.SamplesPerPrompt)
		if err != nil {
			return nil, fmt.Errorf("actor: %w", err)
		}
		actorTexts = append(actorTexts, batch.Texts...)
	}
	if len(actorTexts) == 0 {
		return nil, fmt.Errorf("actors returned no samples")
	}

	criticPrompt := fmt.Sprintf(criticTemplate, promptline.Expectations(cfg), numberedList(actorTexts))
	criticCtx := llm.WithPurpose(ctx, "pace_critic")
	feedback, err := o.gw.Complete(criticCtx, o.cfg.Model, criticPrompt, o.cfg.Sampling)
	if err != nil {
		return nil, fmt.Errorf("critic: %w", err)
	}

	rewritePrompt := fmt.Sprintf(rewriteTemplate, current, feedback, o.cfg.Candidates)
	rewriteCtx := llm.WithPurpose(ctx, "pace_rewrite")
	rewrites, err := o.gw.Samples(rewriteCtx, o.cfg.Model, rewritePrompt, o.cfg.Sampling, o.cfg.Candidates)
	if err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}

	out := &roundOutcome{feedback: feedback, score: currentScore}
	for _, prompt := range rewrites.Texts {
		score, err := o.scorePrompt(ctx, prompt)
		if err != nil {
			if abortWorthy(ctx, err) {
				return nil, err
			}
			continue
		}
		out.candidates = append(out.candidates, Candidate{Prompt: prompt, Score: score})
		// Strict improvement only: earliest candidate wins ties.
		if score > out.score {
			out.improved, out.score = prompt, score
		}
	}

	return out, nil
}

// scorePrompt rates a prompt by its trial samples. The trial set is
// backed by Actors generation calls, same as the evidence the critic
// sees, so candidate scores and critique judge the same sample budget.
func (o *Optimizer) scorePrompt(ctx context.Context, prompt string) (float64, error) {
	scoreCtx := llm.WithPurpose(ctx, "pace_score")
	var texts []string
	for a := 0; a < o.cfg.Actors; a++ {
		batch, err := o.gw.Samples(scoreCtx, o.cfg.Model, prompt, o.cfg.Sampling, o.cfg.SamplesPerPrompt)
		if err != nil {
			return 0, err
		}
		texts = append(texts, batch.Texts...)
	}
	return o.scorer.Score(texts), nil
}

// OptimizeBatch runs Optimize for every configuration concurrently.
// Progress counts completed iterations across the whole batch. A
// configuration whose loop aborts non-fatally falls back to its baseline
// prompt with a warning; a fatal error cancels the remaining work.
func (o *Optimizer) OptimizeBatch(ctx context.Context, configs []feature.AtomicConfiguration, publish progress.Publisher) ([]progress.OptimizedResult, error) {
	if publish == nil {
		publish = progress.Discard
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configurations to optimize")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	totalSteps := int64(len(configs) * o.cfg.Iterations)
	var done atomic.Int64
	step := func() {
		publish(progress.NewProgress(float64(done.Add(1)) / float64(totalSteps) * 100))
	}

	results := make([]progress.OptimizedResult, len(configs))
	errs := make([]error, len(configs))

	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg feature.AtomicConfiguration) {
			defer wg.Done()

			res, err := o.optimizeOne(ctx, cfg, publish, step, i, len(configs))
			if err != nil {
				errs[i] = err
				if llm.IsFatal(err) {
					cancel()
				}
				return
			}
			results[i] = progress.OptimizedResult{Config: cfg, Prompt: res.Prompt, Score: res.Score}
		}(i, cfg)
	}
	wg.Wait()

	out := make([]progress.OptimizedResult, 0, len(configs))
	for i := range configs {
		if err := errs[i]; err != nil {
			if llm.IsFatal(err) || ctx.Err() != nil {
				return nil, err
			}
			publish(progress.NewWarning(fmt.Sprintf("optimization failed for configuration %d, keeping baseline prompt: %v", i, err)))
			results[i] = progress.OptimizedResult{
				Config: configs[i],
				Prompt: promptline.Build(configs[i], o.cfg.SamplesPerPrompt),
			}
		}
		out = append(out, results[i])
	}
	return out, nil
}

// abortWorthy reports whether err should end the whole optimization
// rather than skip a round.
func abortWorthy(ctx context.Context, err error) bool {
	return ctx.Err() != nil || llm.IsFatal(err)
}

func numberedList(items []string) string {
	var out string
	for i, item := range items {
		out += fmt.Sprintf("%d. %s\n", i+1, item)
	}
	return out
}
