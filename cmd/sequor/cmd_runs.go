package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sequor-dev/sequor/internal/archive"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dir, _ := cmd.Flags().GetString("archive")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Archive.Dir
			}
			if dir == "" {
				return fmt.Errorf("no archive directory configured")
			}

			a, err := archive.Open(dir)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer a.Close()

			runs, err := a.ListRuns(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived runs (%d):\n\n", len(runs))
			for i, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, r.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "   created: %s\n", r.CreatedAt.Format(time.RFC3339))
				fmt.Fprintf(cmd.OutOrStdout(), "   rounds: %d, simulations/round: %d, seed: %d\n", r.Rounds, r.SimulationsPerRound, r.Seed)
				fmt.Fprintf(cmd.OutOrStdout(), "   observation: %s\n\n", formatVec(r.Observation))
			}
			return nil
		},
	}

	cmd.Flags().String("archive", "", "Archive directory (overrides config)")

	return cmd
}
