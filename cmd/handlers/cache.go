package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with stats and clear subcommands.
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local content cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			stats, err := app.store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Items:         %d\n", stats.ItemCount)
			fmt.Printf("Subscriptions: %d\n", stats.SubscriptionCount)
			fmt.Printf("Database size: %.1f KB\n", float64(stats.DatabaseSize)/1024)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached content (subscriptions and credentials are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}
