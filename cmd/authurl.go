package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/google"
)

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Google consent URL",
		Long: `Print the Google OAuth consent URL the /auth/login endpoint redirects to.

Useful for checking the client ID, redirect URI and scopes without running the
server. Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			url, err := google.NewExchanger(cfg.Google).AuthURL(google.NewState())
			if err != nil {
				return fmt.Errorf("failed to build consent URL: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
