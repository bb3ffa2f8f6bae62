package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/pkg/database"
)

var (
	statePath string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewSQLite(statePath)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := state.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate state database: %w", err)
		}

		repo := state.NewRepository(db)
		runs, err := repo.ListRuns(cmd.Context(), listLimit, 0)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			cmd.Println("No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tTRIGGER\tBRANCH\tTARGET\tURL\tCREATED")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				run.ID, run.Status, run.Trigger, run.Branch,
				runTarget(&run), run.URL,
				run.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

// runTarget renders the deployment target, or a dash for runs that failed
// before their workflow was resolved
func runTarget(run *state.PipelineRun) string {
	if run.AppName == "" {
		return "-"
	}
	return run.AppName + "/" + run.Slot
}

func init() {
	listCmd.Flags().StringVar(&statePath, "state", "slotship.db", "Path to the local state database")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of runs to list")
}
