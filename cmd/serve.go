package cmd

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/synthline/synthline/internal/llm"
	"github.com/synthline/synthline/internal/server"
	"github.com/synthline/synthline/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		outputDir, _ := cmd.Flags().GetString("output")

		llmCfg := llm.ConfigFromEnv()

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		logger := log.New(os.Stderr, "synthline: ", log.LstdFlags)
		gw := llm.NewGateway(llmCfg, s.EventRepo())
		srv := server.New(server.Config{Addr: addr, OutputDir: outputDir}, gw, s.RunRepo(), logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "Listen address")
	serveCmd.Flags().String("output", "output", "Directory for generated datasets")
}
