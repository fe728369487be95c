package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/synthline/synthline/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent generation and optimization runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		runs, err := s.RunRepo().Recent(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-12s  %-24s  %-16s  %-7s  %-7s  %-9s  %s\n",
			"ID", "Timestamp", "Kind", "Model", "Label", "Configs", "Samples", "Status", "Output")
		fmt.Println(strings.Repeat("─", 120))

		for _, r := range runs {
			model := r.Model
			if len(model) > 24 {
				model = model[:24]
			}
			label := r.Label
			if len(label) > 16 {
				label = label[:16]
			}
			samples := fmt.Sprintf("%d", r.SampleCount)
			if r.Fewer {
				samples += "*"
			}
			fmt.Printf("%-5d  %-19s  %-12s  %-24s  %-16s  %-7d  %-7s  %-9s  %s\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Kind,
				model,
				label,
				r.ConfigCount,
				samples,
				r.Status,
				r.OutputPath,
			)
		}
		fmt.Println("\n* fewer samples than requested were received")
		return nil
	},
}

func init() {
	runsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
}
