package ingest

import (
	"strings"

	"sift/internal/core"
)

// filterItems applies keyword filtering over each item's searchable
// text (body plus entry title). Include is evaluated first: when an
// include list is configured, an item must contain at least one include
// keyword to survive. Exclude then removes any survivor containing an
// exclude keyword. Matching is case-insensitive substring. An empty
// list disables that dimension.
func filterItems(items []core.Item, include, exclude []string) []core.Item {
	if len(include) == 0 && len(exclude) == 0 {
		return items
	}

	kept := make([]core.Item, 0, len(items))
	for _, item := range items {
		text := searchableText(item)
		if len(include) > 0 && !containsAny(text, include) {
			continue
		}
		if len(exclude) > 0 && containsAny(text, exclude) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func searchableText(item core.Item) string {
	title, _ := item.Metadata["entry_title"].(string)
	return strings.ToLower(item.Content + " " + title)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
