package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"voyago/internal/retriever"
)

// DocSearcher is the retrieval surface DocSearch depends on.
type DocSearcher interface {
	Search(ctx context.Context, query string) ([]retriever.SearchResult, error)
}

// DocSearch answers queries from the ingested travel documents.
type DocSearch struct {
	retriever DocSearcher
}

func NewDocSearch(r DocSearcher) *DocSearch {
	return &DocSearch{retriever: r}
}

func (d *DocSearch) Name() string { return "doc_search" }
func (d *DocSearch) Description() string {
	return "Search the travel document database to answer user questions."
}

func (d *DocSearch) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query for the travel documents",
			},
		},
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

func (d *DocSearch) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("parsing doc_search input: %w", err)
	}
	if args.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	slog.Debug("doc_search: searching", "query", args.Query)

	results, err := d.retriever.Search(ctx, args.Query)
	if err != nil {
		return "", fmt.Errorf("searching documents: %w", err)
	}

	if len(results) == 0 {
		return "No relevant documents found in the travel document database.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s p.%d] %s", r.Source, r.Page, r.Content)
	}

	slog.Debug("doc_search: done", "query", args.Query, "results", len(results))
	return truncate([]byte(b.String())), nil
}
