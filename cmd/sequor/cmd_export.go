package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sequor-dev/sequor/internal/archive"
	"github.com/sequor-dev/sequor/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export an archived run's training data as an Arrow IPC file",
		Long: `Export the accumulated (parameter, observation) pairs of a run to an
Arrow IPC file for inspection with columnar tooling.

Example:
  sequor export run-a1b2c3d4e5f6 --out run.arrow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dir, _ := cmd.Flags().GetString("archive")
			out, _ := cmd.Flags().GetString("out")
			runID := args[0]

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
			if out == "" {
				out = runID + ".arrow"
			}

			a, err := archive.Open(dir)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.GetRun(ctx, runID); err != nil {
				return err
			}
			stored, err := a.LoadRounds(ctx, runID)
			if err != nil {
				return fmt.Errorf("loading rounds: %w", err)
			}

			data := make([]export.StoredRoundData, len(stored))
			for i, sr := range stored {
				data[i] = export.StoredRoundData{
					Round: sr.Round,
					Tag:   sr.ProposalTag,
					Theta: sr.Theta,
					Obs:   sr.Obs,
				}
			}

			table, err := export.FromStoredRounds(data)
			if err != nil {
				return err
			}
			if err := table.WriteFile(out); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id": runID,
					"path":   out,
					"rows":   len(table.Rows),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows of run %s to %s\n", len(table.Rows), runID, out)
			return nil
		},
	}

	cmd.Flags().String("archive", "", "Archive directory (overrides config)")
	cmd.Flags().String("out", "", "Output path (default <run-id>.arrow)")

	return cmd
}
