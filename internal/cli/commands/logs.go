package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/pkg/database"
)

var logsStatePath string

var logsCmd = &cobra.Command{
	Use:   "logs <run-id>",
	Short: "Show the stages and logs of a pipeline run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID: %w", err)
		}

		db, err := database.NewSQLite(logsStatePath)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := state.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate state database: %w", err)
		}

		repo := state.NewRepository(db)

		run, err := repo.GetRun(cmd.Context(), runID)
		if err != nil {
			return err
		}

		cmd.Printf("Run %s: %s (%s/%s)\n", run.ID, run.Status, run.AppName, run.Slot)
		if run.URL != "" {
			cmd.Printf("URL: %s\n", run.URL)
		}
		if run.Error != "" {
			cmd.Printf("Error: %s\n", run.Error)
		}

		cmd.Println("\nStages:")
		for _, stage := range run.Stages {
			cmd.Printf("  %d. %-10s %s\n", stage.Ordinal+1, stage.Name, stage.Status)
			if stage.Error != "" {
				cmd.Printf("     error: %s\n", stage.Error)
			}
		}

		logs, err := repo.GetRunLogs(cmd.Context(), runID)
		if err != nil {
			return err
		}

		if len(logs) > 0 {
			cmd.Println("\nLog entries:")
			for _, entry := range logs {
				cmd.Printf("  %s [%s] %s: %s\n",
					entry.Timestamp.Format("15:04:05"), entry.Level, entry.Stage, entry.Message)
			}
		}

		return nil
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsStatePath, "state", "slotship.db", "Path to the local state database")
}
