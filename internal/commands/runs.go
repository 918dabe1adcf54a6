package commands

import (
	"github.com/spf13/cobra"

	"github.com/AppSecureAI/automation-action/internal/output"
	"github.com/AppSecureAI/automation-action/internal/store"
)

// NewRunsCmd creates the runs command for inspecting the local history.
func NewRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs, or show one run with its stored summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *DB) error {
				if len(args) == 1 {
					row, err := store.GetRun(db, args[0])
					if err != nil {
						return err
					}
					return output.PrintSuccess(row)
				}

				rows, err := store.ListRuns(db, limit)
				if err != nil {
					return err
				}
				type resp struct {
					Runs []store.RunRow `json:"runs"`
				}
				return output.PrintSuccess(resp{Runs: rows})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to list")
	return cmd
}
