package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	bravesearch "github.com/cnosuke/go-brave-search"
)

// WebSearch queries the web via Brave. The agent reaches for it only when
// the travel documents come up empty.
type WebSearch struct {
	brave *bravesearch.Client
}

func NewWebSearch(braveAPIKey string) *WebSearch {
	client, _ := bravesearch.NewClient(braveAPIKey)
	return &WebSearch{brave: client}
}

func (w *WebSearch) Name() string { return "web_search" }
func (w *WebSearch) Description() string {
	return "Search the web. Use this only if the answer is not found in the travel documents."
}

func (w *WebSearch) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
			"count": map[string]any{
				"type":        "number",
				"description": "Number of search results to return (default 5, max 20)",
			},
		},
		"required":             []string{"query", "count"},
		"additionalProperties": false,
	}
}

func (w *WebSearch) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("parsing web_search input: %w", err)
	}
	if args.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	count := args.Count
	if count <= 0 {
		count = 5
	}
	if count > 20 {
		count = 20
	}

	slog.Debug("web_search: searching", "query", args.Query, "count", count)

	resp, err := w.brave.WebSearch(ctx, args.Query, &bravesearch.WebSearchParams{
		Count: count,
	})
	if err != nil {
		return "", fmt.Errorf("brave search: %w", err)
	}

	results := resp.GetWebResults()
	if len(results) == 0 {
		return "No web results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n%s", r.Title, r.URL, r.Description)
	}

	slog.Debug("web_search: done", "query", args.Query, "results", len(results))
	return truncate([]byte(b.String())), nil
}
