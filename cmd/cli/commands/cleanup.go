package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const flagToken = "token"

func getCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove job directories older than the server's retention horizon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString(flagToken)
			if token == "" {
				token = os.Getenv(envAdminToken)
			}
			if token == "" {
				return fmt.Errorf("an admin token is required (--%s or %s)", flagToken, envAdminToken)
			}

			report, err := apiClient.Cleanup(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("error running cleanup: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().String(flagToken, "", "Admin bearer token (env: "+envAdminToken+")")
	return cmd
}
