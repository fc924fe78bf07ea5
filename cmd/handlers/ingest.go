package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"sift/internal/ingest"
)

// NewIngestCmd creates the ingest command and its url subcommand.
func NewIngestCmd() *cobra.Command {
	var sourceNames []string
	var sinceHours int

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch new content from all configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.orchestrator.Run(cmd.Context(), ingest.Options{
				Sources:    sourceNames,
				SinceHours: sinceHours,
			})
			if err != nil {
				return err
			}

			for name, count := range result.PerSource {
				fmt.Printf("%s: %d new items\n", name, count)
			}
			for _, failure := range result.Errors {
				fmt.Printf("failed: %s\n", failure)
			}
			fmt.Printf("Saved %d/%d items\n", result.Saved, result.Attempted)
			return nil
		},
	}

	ingestCmd.Flags().StringSliceVar(&sourceNames, "source", nil, "sources to ingest (default: all configured)")
	ingestCmd.Flags().IntVar(&sinceHours, "since", 0, "lookback window in hours (default: configured lookback)")

	ingestCmd.AddCommand(newIngestURLCmd())
	return ingestCmd
}

func newIngestURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <URL>",
		Short: "Ingest a single web page by URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			item, err := app.orchestrator.IngestURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %s (%d chars)\n", item.URL, len(item.Content))
			return nil
		},
	}
}
