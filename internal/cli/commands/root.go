package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slotship",
	Short: "slotship - deployment pipeline for zip-push hosting slots",
	Long: `slotship executes a five-stage deployment pipeline for web applications:
checkout, runtime provisioning, dependency installation, artifact packaging,
and deployment dispatch to a named hosting slot.

Core Flow:
  Repository → Checkout → Runtime → Install → Package → Hosting Slot URL`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(tokenCmd)
}
