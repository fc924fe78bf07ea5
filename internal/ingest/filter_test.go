package ingest

import (
	"testing"
	"time"

	"sift/internal/core"
)

func testItem(id, content, title string) core.Item {
	item := core.NewItem(id, core.SourceRSS, "Feed", content, "https://example.com/"+id, time.Now())
	if title != "" {
		item.Metadata["entry_title"] = title
	}
	return item
}

func ids(items []core.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestFilterItemsNoKeywords(t *testing.T) {
	items := []core.Item{testItem("a", "anything", "")}
	got := filterItems(items, nil, nil)
	if len(got) != 1 {
		t.Errorf("Expected passthrough with no filters, got %v", ids(got))
	}
}

func TestFilterItemsInclude(t *testing.T) {
	items := []core.Item{
		testItem("go", "a post about Golang generics", ""),
		testItem("rust", "a post about borrow checking", ""),
		testItem("title-match", "unrelated body", "Why Go Is Fast"),
	}

	got := filterItems(items, []string{"go"}, nil)
	if len(got) != 2 {
		t.Fatalf("Expected 2 items, got %v", ids(got))
	}
	if got[0].ID != "go" || got[1].ID != "title-match" {
		t.Errorf("Expected [go title-match], got %v", ids(got))
	}
}

func TestFilterItemsExclude(t *testing.T) {
	items := []core.Item{
		testItem("keep", "a calm technical post", ""),
		testItem("drop", "SPONSORED: buy our thing", ""),
	}

	got := filterItems(items, nil, []string{"sponsored"})
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("Expected only 'keep', got %v", ids(got))
	}
}

func TestFilterItemsExcludeWinsOverInclude(t *testing.T) {
	items := []core.Item{
		testItem("both", "a go post that is sponsored", ""),
		testItem("include-only", "a go post", ""),
	}

	got := filterItems(items, []string{"go"}, []string{"sponsored"})
	if len(got) != 1 || got[0].ID != "include-only" {
		t.Errorf("Expected exclude to remove an include match, got %v", ids(got))
	}
}

func TestFilterItemsCaseInsensitive(t *testing.T) {
	items := []core.Item{testItem("a", "All About KUBERNETES Today", "")}
	got := filterItems(items, []string{"kubernetes"}, nil)
	if len(got) != 1 {
		t.Errorf("Expected case-insensitive include match, got %v", ids(got))
	}
}

func TestFilterItemsBlankKeywordsIgnored(t *testing.T) {
	items := []core.Item{testItem("a", "some body", "")}

	// A list of only blank keywords must not match everything via "".
	got := filterItems(items, []string{"  ", ""}, nil)
	if len(got) != 0 {
		t.Errorf("Expected blank include keywords to match nothing, got %v", ids(got))
	}

	got = filterItems(items, nil, []string{"  "})
	if len(got) != 1 {
		t.Errorf("Expected blank exclude keywords to drop nothing, got %v", ids(got))
	}
}

func TestFilterItemsMonotonic(t *testing.T) {
	items := []core.Item{
		testItem("a", "go and rust", ""),
		testItem("b", "go only", ""),
		testItem("c", "neither", ""),
	}

	unfiltered := filterItems(items, nil, nil)
	included := filterItems(items, []string{"go"}, nil)
	both := filterItems(items, []string{"go"}, []string{"rust"})

	if len(included) > len(unfiltered) || len(both) > len(included) {
		t.Errorf("Expected each filter stage to only shrink the set: %d -> %d -> %d",
			len(unfiltered), len(included), len(both))
	}
}
