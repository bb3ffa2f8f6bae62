package commands

import (
	"github.com/spf13/cobra"

	"github.com/alvesdmateus/slotship/internal/api"
	"github.com/alvesdmateus/slotship/pkg/config"
)

var tokenName string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token",
	Long:  `Issue a signed bearer token for the service API, using the configured auth.jwt_secret.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		token, expiresAt, err := api.IssueToken(&cfg.Auth, tokenName)
		if err != nil {
			return err
		}

		cmd.Println(token)
		cmd.Printf("expires: %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "cli", "Token subject name")
}
