package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/slotship/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate [workflow-file]",
	Short: "Validate a pipeline workflow definition",
	Long:  `Parse and validate a workflow file, reporting its triggers and deployment target. Defaults to deploy.yml in the current directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "deploy.yml"
		if len(args) == 1 {
			path = args[0]
		}

		wf, err := workflow.Load(path)
		if err != nil {
			return err
		}

		cmd.Printf("Workflow %q is valid\n", wf.Name)

		var triggers []string
		if wf.On.Push != nil {
			triggers = append(triggers, "push ("+strings.Join(wf.On.Push.Branches, ", ")+")")
		}
		if wf.On.Dispatch {
			triggers = append(triggers, "dispatch")
		}
		cmd.Printf("  triggers:  %s\n", strings.Join(triggers, ", "))
		cmd.Printf("  runtime:   python %s\n", wf.Runtime.Python)
		cmd.Printf("  manifest:  %s\n", wf.ManifestPath())
		cmd.Printf("  excludes:  %s\n", strings.Join(wf.Excludes(), ", "))
		cmd.Printf("  target:    %s/%s\n", wf.Deploy.App, wf.SlotName())

		return nil
	},
}
