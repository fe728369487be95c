package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/synthline/synthline/internal/dataset"
	"github.com/synthline/synthline/internal/feature"
	"github.com/synthline/synthline/internal/generator"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/pace"
	"github.com/synthline/synthline/internal/progress"
	"github.com/synthline/synthline/internal/promptline"
	"github.com/synthline/synthline/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a dataset from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel := feature.Selection{
			Label:           mustString(cmd, "label"),
			LabelDefinition: mustString(cmd, "label-definition"),
		}
		sel.SpecificationFormat = sliceFlag(cmd, "format")
		sel.SpecificationLevel = sliceFlag(cmd, "level")
		sel.Stakeholder = sliceFlag(cmd, "stakeholder")
		sel.Domain = sliceFlag(cmd, "domain")
		sel.Language = sliceFlag(cmd, "language")

		model := mustString(cmd, "model")
		total, _ := cmd.Flags().GetInt("samples")
		perPrompt, _ := cmd.Flags().GetInt("per-prompt")
		optimize, _ := cmd.Flags().GetBool("optimize")
		iterations, _ := cmd.Flags().GetInt("iterations")
		actors, _ := cmd.Flags().GetInt("actors")
		candidates, _ := cmd.Flags().GetInt("candidates")
		outDir, _ := cmd.Flags().GetString("out")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		topP, _ := cmd.Flags().GetFloat64("top-p")

		format, err := dataset.ParseFormat(mustString(cmd, "output-format"))
		if err != nil {
			return err
		}

		configs, err := feature.Expand(sel, perPrompt)
		if err != nil {
			return err
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		gw := llm.NewGateway(llm.ConfigFromEnv(), s.EventRepo())
		sampling := llm.SamplingParams{Temperature: temperature, TopP: topP}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		publish := printProgress(cmd)
		started := time.Now()

		prompts := promptline.BuildAll(configs, perPrompt)
		if optimize {
			cmd.Printf("Optimizing prompts for %d configuration(s)...\n", len(configs))
			pcfg := pace.DefaultConfig()
			pcfg.Model = model
			pcfg.Sampling = sampling
			pcfg.SamplesPerPrompt = perPrompt
			if iterations > 0 {
				pcfg.Iterations = iterations
			}
			if actors > 0 {
				pcfg.Actors = actors
			}
			if candidates > 0 {
				pcfg.Candidates = candidates
			}

			results, err := pace.New(gw, nil, pcfg).OptimizeBatch(ctx, configs, publish)
			if err != nil {
				return fmt.Errorf("optimize prompts: %w", err)
			}
			for i, res := range results {
				prompts[i] = promptline.AtomicPrompt{Config: res.Config, Prompt: res.Prompt}
			}
		}

		cmd.Printf("Generating %d sample(s) across %d configuration(s) with %s...\n", total, len(configs), model)
		orch := generator.New(gw, generator.Config{
			Model:                    model,
			Sampling:                 sampling,
			MaxConsecutiveShortfalls: generator.DefaultConfig().MaxConsecutiveShortfalls,
		})
		res, err := orch.Generate(ctx, prompts, total, publish)
		if err != nil {
			saveCLIRun(cmd, s, model, sel.Label, len(configs), 0, false, started, "", "failed")
			return fmt.Errorf("generate: %w", err)
		}

		path, err := dataset.NewWriter(outDir).Save(res.Samples, format, model, sel.Label)
		if err != nil {
			return fmt.Errorf("save dataset: %w", err)
		}

		saveCLIRun(cmd, s, model, sel.Label, len(configs), len(res.Samples), res.FewerSamplesReceived, started, path, "completed")

		cmd.Printf("Wrote %d sample(s) to %s\n", len(res.Samples), path)
		if res.FewerSamplesReceived {
			cmd.Println("Note: the backend delivered fewer samples than requested on at least one call.")
		}
		return nil
	},
}

// printProgress adapts job events to CLI output.
func printProgress(cmd *cobra.Command) progress.Publisher {
	return func(ev progress.Event) {
		switch e := ev.(type) {
		case *progress.ProgressEvent:
			cmd.Printf("  %.0f%%\n", e.Progress)
		case *progress.PromptUpdateEvent:
			cmd.Printf("  improved prompt (iteration %d, score %.3f)\n", e.Iteration, e.Score)
		case *progress.WarningEvent:
			cmd.Printf("  warning: %s\n", e.Message)
		}
	}
}

func saveCLIRun(cmd *cobra.Command, s *store.Store, model, label string, configCount, sampleCount int, fewer bool, started time.Time, path, status string) {
	run := &store.Run{
		Kind:        "generation",
		Model:       model,
		Label:       label,
		ConfigCount: configCount,
		SampleCount: sampleCount,
		Fewer:       fewer,
		DurationMs:  time.Since(started).Milliseconds(),
		Status:      status,
		OutputPath:  path,
	}
	if err := s.RunRepo().Save(context.Background(), run); err != nil {
		cmd.PrintErrf("warning: saving run record failed: %v\n", err)
	}
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func sliceFlag(cmd *cobra.Command, name string) feature.Values {
	v, _ := cmd.Flags().GetStringSlice(name)
	return feature.Values(v)
}

func init() {
	generateCmd.Flags().String("model", "", "Model to generate with (e.g. gpt-4o-mini, ollama/llama3.1)")
	generateCmd.Flags().String("label", "", "Classification label for every sample")
	generateCmd.Flags().String("label-definition", "", "Definition of the label")
	generateCmd.Flags().StringSlice("format", []string{"NL"}, "Specification format(s)")
	generateCmd.Flags().StringSlice("level", []string{"High"}, "Specification level(s)")
	generateCmd.Flags().StringSlice("stakeholder", []string{"End Users"}, "Stakeholder perspective(s)")
	generateCmd.Flags().StringSlice("domain", nil, "Application domain(s)")
	generateCmd.Flags().StringSlice("language", []string{"English"}, "Output language(s)")
	generateCmd.Flags().Int("samples", 10, "Total number of samples to generate")
	generateCmd.Flags().Int("per-prompt", 5, "Samples requested per LLM call")
	generateCmd.Flags().Bool("optimize", false, "Optimize prompts before generating")
	generateCmd.Flags().Int("iterations", 0, "Optimization iterations (0 uses the default)")
	generateCmd.Flags().Int("actors", 0, "Actor generations per optimization round (0 uses the default)")
	generateCmd.Flags().Int("candidates", 0, "Rewritten prompt candidates per round (0 uses the default)")
	generateCmd.Flags().String("output-format", "JSON", "Output format: JSON or CSV")
	generateCmd.Flags().String("out", "output", "Directory for generated datasets")
	generateCmd.Flags().Float64("temperature", 0.7, "Sampling temperature")
	generateCmd.Flags().Float64("top-p", 0, "Nucleus sampling cutoff (0 leaves the backend default)")

	_ = generateCmd.MarkFlagRequired("model")
	_ = generateCmd.MarkFlagRequired("label")
	_ = generateCmd.MarkFlagRequired("domain")
}
