// Package server exposes the generation and optimization engines over
// HTTP, with per-job progress streamed on a websocket.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/synthline/synthline/internal/dataset"
	"github.com/synthline/synthline/internal/job"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/progress"
	"github.com/synthline/synthline/internal/store"
)

// Config holds the server settings.
type Config struct {
	Addr      string
	OutputDir string
}

// Server wires the engines, the job registry and the progress broker
// behind the HTTP API.
type Server struct {
	cfg    Config
	gw     *llm.Gateway
	broker *progress.Broker
	jobs   *job.Registry
	writer *dataset.Writer
	runs   store.RunRepo // nil disables run records
	logger *log.Logger
}

// New creates a Server. runs may be nil.
func New(cfg Config, gw *llm.Gateway, runs store.RunRepo, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:    cfg,
		gw:     gw,
		broker: progress.NewBroker(),
		jobs:   job.NewRegistry(),
		writer: dataset.NewWriter(cfg.OutputDir),
		runs:   runs,
		logger: logger,
	}
}

// Handler returns the server's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/features", s.handleFeatures)
	mux.HandleFunc("POST /api/models/fetch", s.handleFetchModels)
	mux.HandleFunc("POST /api/generation/preview-prompt", s.handlePreviewPrompt)
	mux.HandleFunc("POST /api/generation/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/optimization/optimize-prompt", s.handleOptimize)
	mux.HandleFunc("GET /ws/{connection_id}", s.handleWebsocket)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// connections with a grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.logger.Printf("listening on %s", s.cfg.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
