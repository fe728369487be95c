package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/synthline/synthline/internal/dataset"
	"github.com/synthline/synthline/internal/feature"
	"github.com/synthline/synthline/internal/generator"
	"github.com/synthline/synthline/internal/job"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/pace"
	"github.com/synthline/synthline/internal/progress"
	"github.com/synthline/synthline/internal/promptline"
	"github.com/synthline/synthline/internal/store"
)

// GenerateRequest starts a generation job.
type GenerateRequest struct {
	Features         feature.Selection          `json:"features"`
	Model            string                     `json:"model"`
	NumSamples       int                        `json:"num_samples"`
	SamplesPerPrompt int                        `json:"samples_per_prompt"`
	OutputFormat     string                     `json:"output_format"`
	Sampling         llm.SamplingParams         `json:"sampling"`
	OptimizedPrompts []progress.OptimizedResult `json:"optimized_prompts,omitempty"`
	ConnectionID     string                     `json:"connection_id"`
}

// OptimizeRequest starts a prompt optimization job.
type OptimizeRequest struct {
	Features         feature.Selection  `json:"features"`
	Model            string             `json:"model"`
	SamplesPerPrompt int                `json:"samples_per_prompt"`
	Iterations       int                `json:"iterations"`
	Actors           int                `json:"actors"`
	Candidates       int                `json:"candidates"`
	Sampling         llm.SamplingParams `json:"sampling"`
	ConnectionID     string             `json:"connection_id"`
}

// PreviewRequest renders baseline prompts without calling a backend.
type PreviewRequest struct {
	Features         feature.Selection `json:"features"`
	SamplesPerPrompt int               `json:"samples_per_prompt"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, feature.Model())
}

// handleFetchModels returns the model ids the configured hosted backends
// currently offer, with OpenRouter ids carrying their routing prefix.
func (s *Server) handleFetchModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.gw.ListModels(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if llm.IsFatal(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handlePreviewPrompt(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SamplesPerPrompt < 1 {
		req.SamplesPerPrompt = 1
	}

	configs, err := feature.Expand(req.Features, req.SamplesPerPrompt)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prompts": promptline.BuildAll(configs, req.SamplesPerPrompt),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	if req.NumSamples < 1 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("num_samples must be positive"))
		return
	}
	if req.SamplesPerPrompt < 1 {
		req.SamplesPerPrompt = 1
	}

	format, err := dataset.ParseFormat(req.OutputFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	prompts, err := s.generationPrompts(&req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	j := s.createJob(req.ConnectionID, "generation")
	go s.runGeneration(j, &req, prompts, format)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": j.ID})
}

// generationPrompts uses the caller's optimized prompts when supplied,
// otherwise expands the selection and renders baseline prompts.
func (s *Server) generationPrompts(req *GenerateRequest) ([]promptline.AtomicPrompt, error) {
	if len(req.OptimizedPrompts) > 0 {
		prompts := make([]promptline.AtomicPrompt, len(req.OptimizedPrompts))
		for i, op := range req.OptimizedPrompts {
			cfg := op.Config
			cfg.SamplesPerPrompt = req.SamplesPerPrompt
			prompts[i] = promptline.AtomicPrompt{Config: cfg, Prompt: op.Prompt}
		}
		return prompts, nil
	}

	configs, err := feature.Expand(req.Features, req.SamplesPerPrompt)
	if err != nil {
		return nil, err
	}
	return promptline.BuildAll(configs, req.SamplesPerPrompt), nil
}

func (s *Server) runGeneration(j *job.Job, req *GenerateRequest, prompts []promptline.AtomicPrompt, format dataset.Format) {
	publish := s.broker.Publisher(j.ID)
	started := time.Now()

	orch := generator.New(s.gw, generator.Config{
		Model:                    req.Model,
		Sampling:                 req.Sampling,
		MaxConsecutiveShortfalls: generator.DefaultConfig().MaxConsecutiveShortfalls,
	})

	res, err := orch.Generate(j.Context(), prompts, req.NumSamples, publish)
	if err != nil {
		s.finishJob(j, publish, err)
		s.saveRun(j, req.Model, prompts, 0, false, started, "", string(j.Status()))
		return
	}

	encoded, err := dataset.Encode(res.Samples, format)
	if err != nil {
		s.finishJob(j, publish, err)
		s.saveRun(j, req.Model, prompts, len(res.Samples), res.FewerSamplesReceived, started, "", "failed")
		return
	}

	path, err := s.writer.Save(res.Samples, format, req.Model, prompts[0].Config.Label)
	if err != nil {
		s.logger.Printf("job %s: saving dataset failed: %v", j.ID, err)
		path = ""
	}

	j.Finish(job.StatusCompleted)
	publish(progress.NewGenerationComplete(res.Samples, string(encoded), string(format), res.FewerSamplesReceived))
	s.saveRun(j, req.Model, prompts, len(res.Samples), res.FewerSamplesReceived, started, path, "completed")
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	if req.SamplesPerPrompt < 1 {
		req.SamplesPerPrompt = 1
	}

	configs, err := feature.Expand(req.Features, req.SamplesPerPrompt)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	j := s.createJob(req.ConnectionID, "optimization")
	go s.runOptimization(j, &req, configs)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": j.ID})
}

func (s *Server) runOptimization(j *job.Job, req *OptimizeRequest, configs []feature.AtomicConfiguration) {
	publish := s.broker.Publisher(j.ID)
	started := time.Now()

	cfg := pace.DefaultConfig()
	cfg.Model = req.Model
	cfg.Sampling = req.Sampling
	cfg.SamplesPerPrompt = req.SamplesPerPrompt
	if req.Iterations > 0 {
		cfg.Iterations = req.Iterations
	}
	if req.Actors > 0 {
		cfg.Actors = req.Actors
	}
	if req.Candidates > 0 {
		cfg.Candidates = req.Candidates
	}
	opt := pace.New(s.gw, nil, cfg)

	if len(configs) == 1 {
		res, err := opt.Optimize(j.Context(), configs[0], publish)
		if err != nil {
			s.finishJob(j, publish, err)
			s.saveOptimizeRun(j, req.Model, configs, started, string(j.Status()))
			return
		}
		j.Finish(job.StatusCompleted)
		publish(progress.NewOptimizeComplete(res.Prompt, res.Score))
		s.saveOptimizeRun(j, req.Model, configs, started, "completed")
		return
	}

	results, err := opt.OptimizeBatch(j.Context(), configs, publish)
	if err != nil {
		s.finishJob(j, publish, err)
		s.saveOptimizeRun(j, req.Model, configs, started, string(j.Status()))
		return
	}
	j.Finish(job.StatusCompleted)
	publish(progress.NewOptimizeCompleteBatch(results))
	s.saveOptimizeRun(j, req.Model, configs, started, "completed")
}

// createJob registers a job keyed by the websocket connection id so the
// socket's reader can cancel it on disconnect. Requests without a
// connection id still run, with their progress discarded.
func (s *Server) createJob(connectionID, kind string) *job.Job {
	if connectionID == "" {
		return s.jobs.Create(context.Background(), kind)
	}
	return s.jobs.CreateWithID(context.Background(), connectionID, kind)
}

// finishJob records the terminal status and publishes the error event.
// Cancelled jobs publish nothing: their subscriber is already gone.
func (s *Server) finishJob(j *job.Job, publish progress.Publisher, err error) {
	if j.Context().Err() != nil {
		j.Finish(job.StatusCancelled)
		s.logger.Printf("job %s cancelled", j.ID)
		return
	}
	j.Finish(job.StatusFailed)
	s.logger.Printf("job %s failed: %v", j.ID, err)
	publish(progress.NewError(err.Error()))
}

func (s *Server) saveRun(j *job.Job, model string, prompts []promptline.AtomicPrompt, sampleCount int, fewer bool, started time.Time, outputPath, status string) {
	if s.runs == nil {
		return
	}
	run := &store.Run{
		JobID:       j.ID,
		Kind:        j.Kind,
		Model:       model,
		Label:       prompts[0].Config.Label,
		ConfigCount: len(prompts),
		SampleCount: sampleCount,
		Fewer:       fewer,
		DurationMs:  time.Since(started).Milliseconds(),
		Status:      status,
		OutputPath:  outputPath,
	}
	if err := s.runs.Save(context.Background(), run); err != nil {
		s.logger.Printf("job %s: saving run record failed: %v", j.ID, err)
	}
}

func (s *Server) saveOptimizeRun(j *job.Job, model string, configs []feature.AtomicConfiguration, started time.Time, status string) {
	if s.runs == nil {
		return
	}
	run := &store.Run{
		JobID:       j.ID,
		Kind:        j.Kind,
		Model:       model,
		Label:       configs[0].Label,
		ConfigCount: len(configs),
		DurationMs:  time.Since(started).Milliseconds(),
		Status:      status,
	}
	if err := s.runs.Save(context.Background(), run); err != nil {
		s.logger.Printf("job %s: saving run record failed: %v", j.ID, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
