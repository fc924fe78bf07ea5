package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAuthCmd creates the auth command for YouTube authentication.
func NewAuthCmd() *cobra.Command {
	var logout bool

	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with YouTube through the OAuth proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			if logout {
				if err := app.tokens.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("Logged out; stored credentials removed.")
				return nil
			}

			if app.cfg.YouTube.ProxyBaseURL == "" {
				return fmt.Errorf("youtube.proxy_base_url is not configured")
			}
			if err := app.tokens.Authenticate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Authentication successful.")
			return nil
		},
	}

	authCmd.Flags().BoolVar(&logout, "logout", false, "delete stored credentials instead of authenticating")
	return authCmd
}
