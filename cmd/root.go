package cmd

import (
	"github.com/spf13/cobra"
	"github.com/synthline/synthline/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "synthline",
	Short: "Synthetic requirements dataset generator",
	Long:  "Synthline — generates labeled software-requirements datasets with LLMs, with optional actor-critic prompt optimization.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SYNTHLINE_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then SYNTHLINE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
