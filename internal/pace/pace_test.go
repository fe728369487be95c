package pace

import (
	"context"
	"errors"
	"testing"

	"github.com/synthline/synthline/internal/feature"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/progress"
	"github.com/synthline/synthline/internal/promptline"
)

func testConfig() feature.AtomicConfiguration {
	return feature.AtomicConfiguration{
		Label:               "Security",
		LabelDefinition:     "concerns protection of data",
		SpecificationFormat: "user story",
		SpecificationLevel:  "system",
		Stakeholder:         "an end user",
		Domain:              "Banking",
		Language:            "English",
		SamplesPerPrompt:    3,
	}
}

var (
	flatSamples    = []string{"alpha beta gamma", "alpha beta gamma", "alpha beta gamma"}
	diverseSamples = []string{"alpha beta", "gamma delta", "epsilon zeta"}
)

// fakeGateway routes calls by purpose: actor and rewrite pop scripted
// queues, scoring looks samples up by prompt, the critic returns a fixed
// completion.
type fakeGateway struct {
	actor      [][]string
	actorErr   error
	critic     string
	criticErr  error
	rewrites   [][]string
	scores     map[string][]string
	scoreCalls map[string]int
}

func (f *fakeGateway) Complete(ctx context.Context, model, prompt string, sampling llm.SamplingParams) (string, error) {
	if f.criticErr != nil {
		return "", f.criticErr
	}
	return f.critic, nil
}

func (f *fakeGateway) Samples(ctx context.Context, model, prompt string, sampling llm.SamplingParams, n int) (*llm.SampleBatch, error) {
	switch llm.PurposeFrom(ctx) {
	case "pace_actor":
		if f.actorErr != nil {
			return nil, f.actorErr
		}
		texts := flatSamples
		if len(f.actor) > 0 {
			texts = f.actor[0]
			f.actor = f.actor[1:]
		}
		return &llm.SampleBatch{Texts: texts, Requested: n}, nil
	case "pace_rewrite":
		var texts []string
		if len(f.rewrites) > 0 {
			texts = f.rewrites[0]
			f.rewrites = f.rewrites[1:]
		}
		return &llm.SampleBatch{Texts: texts, Requested: n}, nil
	default: // pace_score
		if f.scoreCalls == nil {
			f.scoreCalls = make(map[string]int)
		}
		f.scoreCalls[prompt]++
		return &llm.SampleBatch{Texts: f.scores[prompt], Requested: n}, nil
	}
}

type collector struct {
	events []progress.Event
}

func (c *collector) publish(ev progress.Event) { c.events = append(c.events, ev) }

func (c *collector) ofType(t progress.Type) []progress.Event {
	var out []progress.Event
	for _, ev := range c.events {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

func optimizerConfig() Config {
	return Config{Iterations: 1, Candidates: 1, SamplesPerPrompt: 3, Model: "mock"}
}

func TestOptimize_AdoptsImprovedCandidate(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	gw := &fakeGateway{
		critic:   "samples are near-identical",
		rewrites: [][]string{{"improved prompt"}},
		scores: map[string][]string{
			baseline:          flatSamples,
			"improved prompt": diverseSamples,
		},
	}
	c := &collector{}

	res, err := New(gw, nil, optimizerConfig()).Optimize(context.Background(), cfg, c.publish)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Prompt != "improved prompt" {
		t.Fatalf("expected improved prompt adopted, got %q", res.Prompt)
	}
	if res.Score <= 0 {
		t.Fatalf("expected positive score, got %f", res.Score)
	}

	updates := c.ofType(progress.TypePromptUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected one prompt_update, got %d", len(updates))
	}
	if u := updates[0].(*progress.PromptUpdateEvent); u.Prompt != "improved prompt" || u.Iteration != 1 {
		t.Fatalf("unexpected update: %+v", u)
	}

	if len(res.History) != 1 || !res.History[0].Improved {
		t.Fatalf("expected one improved iteration record, got %+v", res.History)
	}
	if len(res.History[0].Candidates) != 1 || res.History[0].Candidates[0].Prompt != "improved prompt" {
		t.Fatalf("record must keep the evaluated candidates, got %+v", res.History[0].Candidates)
	}
}

func TestOptimize_MultipleActorsFeedOneCritic(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	gw := &fakeGateway{
		actor:    [][]string{{"first actor sample"}, {"second actor sample"}},
		critic:   "fine",
		rewrites: [][]string{{"candidate"}},
		scores: map[string][]string{
			baseline:    diverseSamples,
			"candidate": flatSamples,
		},
	}

	ocfg := optimizerConfig()
	ocfg.Actors = 2
	res, err := New(gw, nil, ocfg).Optimize(context.Background(), cfg, progress.Discard)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(gw.actor) != 0 {
		t.Fatalf("expected both actor batches consumed, %d left", len(gw.actor))
	}
	if len(res.History) != 1 {
		t.Fatalf("expected one iteration record, got %d", len(res.History))
	}
}

func TestOptimize_CandidateScoringScalesWithActors(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	gw := &fakeGateway{
		critic:   "fine",
		rewrites: [][]string{{"candidate one", "candidate two"}},
		scores: map[string][]string{
			baseline:        diverseSamples,
			"candidate one": flatSamples,
			"candidate two": flatSamples,
		},
	}

	ocfg := optimizerConfig()
	ocfg.Actors = 2
	ocfg.Candidates = 2
	if _, err := New(gw, nil, ocfg).Optimize(context.Background(), cfg, progress.Discard); err != nil {
		t.Fatalf("optimize: %v", err)
	}

	// Every trial set, baseline and per candidate, is backed by one
	// generation call per actor.
	for _, prompt := range []string{baseline, "candidate one", "candidate two"} {
		if got := gw.scoreCalls[prompt]; got != 2 {
			t.Fatalf("scoring %q made %d calls, want one per actor", prompt, got)
		}
	}
}

func TestOptimize_KeepsBaselineWhenCandidatesDoNotImprove(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	gw := &fakeGateway{
		critic:   "fine",
		rewrites: [][]string{{"worse prompt"}},
		scores: map[string][]string{
			baseline:       diverseSamples,
			"worse prompt": flatSamples,
		},
	}
	c := &collector{}

	res, err := New(gw, nil, optimizerConfig()).Optimize(context.Background(), cfg, c.publish)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Prompt != baseline {
		t.Fatalf("baseline must survive a non-improving round, got %q", res.Prompt)
	}

	// The round still reports the current best.
	updates := c.ofType(progress.TypePromptUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected one prompt_update, got %d", len(updates))
	}
	if u := updates[0].(*progress.PromptUpdateEvent); u.Prompt != baseline {
		t.Fatalf("update must carry the incumbent, got %q", u.Prompt)
	}
}

func TestOptimize_TieKeepsIncumbent(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	// Both candidates score exactly like the baseline.
	gw := &fakeGateway{
		critic:   "fine",
		rewrites: [][]string{{"tie one", "tie two"}},
		scores: map[string][]string{
			baseline:  diverseSamples,
			"tie one": diverseSamples,
			"tie two": diverseSamples,
		},
	}

	ocfg := optimizerConfig()
	ocfg.Candidates = 2
	res, err := New(gw, nil, ocfg).Optimize(context.Background(), cfg, progress.Discard)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Prompt != baseline {
		t.Fatalf("tie must keep the incumbent, got %q", res.Prompt)
	}
}

func TestOptimize_TransientFailureSkipsRoundWithWarning(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	gw := &fakeGateway{
		actorErr: &llm.ErrProviderUnavailable{Err: errors.New("connection refused")},
		scores:   map[string][]string{baseline: diverseSamples},
	}
	c := &collector{}

	res, err := New(gw, nil, optimizerConfig()).Optimize(context.Background(), cfg, c.publish)
	if err != nil {
		t.Fatalf("transient failure must not abort: %v", err)
	}
	if res.Prompt != baseline {
		t.Fatalf("expected baseline prompt, got %q", res.Prompt)
	}
	if len(c.ofType(progress.TypeWarning)) == 0 {
		t.Fatal("expected a warning for the skipped round")
	}
}

func TestOptimize_FatalErrorAborts(t *testing.T) {
	cfg := testConfig()
	baseline := promptline.Build(cfg, 3)

	gw := &fakeGateway{
		criticErr: &llm.ErrProvider{Err: errors.New("invalid api key")},
		scores:    map[string][]string{baseline: diverseSamples},
	}

	_, err := New(gw, nil, optimizerConfig()).Optimize(context.Background(), cfg, progress.Discard)
	if err == nil || !llm.IsFatal(err) {
		t.Fatalf("expected fatal provider error, got %v", err)
	}
}

func TestOptimizeBatch_ReturnsResultPerConfig(t *testing.T) {
	first := testConfig()
	second := testConfig()
	second.Domain = "Healthcare"

	gw := &fakeGateway{critic: "fine", scores: map[string][]string{}}
	for _, cfg := range []feature.AtomicConfiguration{first, second} {
		gw.scores[promptline.Build(cfg, 3)] = diverseSamples
	}
	c := &collector{}

	results, err := New(gw, nil, optimizerConfig()).OptimizeBatch(context.Background(), []feature.AtomicConfiguration{first, second}, c.publish)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Config.Domain != "Banking" || results[1].Config.Domain != "Healthcare" {
		t.Fatal("results must keep configuration order")
	}

	// Final progress event must report full completion.
	events := c.ofType(progress.TypeProgress)
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	last := events[len(events)-1].(*progress.ProgressEvent)
	if last.Progress != 100 {
		t.Fatalf("final progress = %f, want 100", last.Progress)
	}
}

func TestLexicalDiversity(t *testing.T) {
	s := LexicalDiversity{}
	if got := s.Score(flatSamples); got != 0 {
		t.Fatalf("identical samples must score 0, got %f", got)
	}
	if got := s.Score(diverseSamples); got != 1 {
		t.Fatalf("disjoint samples must score 1, got %f", got)
	}
	if got := s.Score([]string{"only one"}); got != 0 {
		t.Fatalf("single sample must score 0, got %f", got)
	}
	mid := s.Score([]string{"alpha beta", "alpha gamma"})
	if mid <= 0 || mid >= 1 {
		t.Fatalf("overlapping samples must score strictly between 0 and 1, got %f", mid)
	}
}

func TestOptimize_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &fakeGateway{scores: map[string][]string{}}
	_, err := New(gw, nil, optimizerConfig()).Optimize(ctx, testConfig(), progress.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
