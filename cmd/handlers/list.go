package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command for browsing stored content.
func NewListCmd() *cobra.Command {
	var sinceHours int
	var source string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			since := time.Now().UTC().Add(-time.Duration(sinceHours) * time.Hour)
			items, err := app.store.ListSince(cmd.Context(), since, source)
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Println("No items found.")
				return nil
			}

			for _, item := range items {
				title, _ := item.Metadata["entry_title"].(string)
				if title == "" {
					title = firstLine(item.Content)
				}
				fmt.Printf("[%s] %s  %s\n    %s\n",
					item.Source,
					item.CreatedAt.Local().Format("2006-01-02 15:04"),
					title,
					item.URL,
				)
			}
			fmt.Printf("\n%d items\n", len(items))
			return nil
		},
	}

	listCmd.Flags().IntVar(&sinceHours, "since", 24, "lookback window in hours")
	listCmd.Flags().StringVar(&source, "source", "", "filter by source (rss, youtube, website)")
	return listCmd
}

func firstLine(content string) string {
	line := strings.TrimSpace(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if len(line) > 80 {
		line = line[:80] + "..."
	}
	return line
}
