// Package handlers contains the cobra command constructors for the
// sift CLI.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sift",
		Short: "Sift aggregates content from RSS feeds and YouTube subscriptions into a local store.",
		Long: `Sift pulls content from configured RSS/Atom feeds and from the
authenticated user's YouTube subscriptions, deduplicates it against a
local cache, enriches it with full-article text or video transcripts,
and stores it for later reading or digesting.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sift.yaml)")

	rootCmd.AddCommand(NewIngestCmd())
	rootCmd.AddCommand(NewAuthCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewCacheCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
